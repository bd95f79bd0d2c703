// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_StaticToken(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{ServiceToken: "secret"})
	ctx := context.Background()

	assert.NoError(t, auth.Authenticate(ctx, "Bearer secret"))

	err := auth.Authenticate(ctx, "Bearer wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.ErrorIs(t, auth.Authenticate(ctx, ""), ErrUnauthorized)
	assert.ErrorIs(t, auth.Authenticate(ctx, "Bearer "), ErrUnauthorized)
	assert.ErrorIs(t, auth.Authenticate(ctx, "secret"), ErrUnauthorized)
}

func TestAuthenticator_NoTokenConfigured(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{})
	assert.ErrorIs(t, auth.Authenticate(context.Background(), "Bearer anything"), ErrUnauthorized)
}

func TestAuthenticator_RemoteValidationCaches(t *testing.T) {
	var calls atomic.Int32
	auth := NewAuthenticator(AuthConfig{
		Validate: func(ctx context.Context, token string) (bool, error) {
			calls.Add(1)
			return token == "good", nil
		},
	})
	ctx := context.Background()

	require.NoError(t, auth.Authenticate(ctx, "Bearer good"))
	require.NoError(t, auth.Authenticate(ctx, "Bearer good"))
	require.NoError(t, auth.Authenticate(ctx, "Bearer good"))
	assert.Equal(t, int32(1), calls.Load(), "positive verdict must be cached")
}

func TestAuthenticator_RemoteValidationExpiry(t *testing.T) {
	now := time.Now()
	var calls atomic.Int32
	auth := NewAuthenticator(AuthConfig{
		Validate: func(ctx context.Context, token string) (bool, error) {
			calls.Add(1)
			return true, nil
		},
	})
	auth.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, auth.Authenticate(ctx, "Bearer tok"))
	require.NoError(t, auth.Authenticate(ctx, "Bearer tok"))
	assert.Equal(t, int32(1), calls.Load())

	// Past the TTL the upstream is consulted again so revocations land.
	now = now.Add(verdictTTL + time.Second)
	require.NoError(t, auth.Authenticate(ctx, "Bearer tok"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestAuthenticator_NegativeVerdictNotCached(t *testing.T) {
	var calls atomic.Int32
	auth := NewAuthenticator(AuthConfig{
		Validate: func(ctx context.Context, token string) (bool, error) {
			calls.Add(1)
			return false, nil
		},
	})
	ctx := context.Background()

	assert.ErrorIs(t, auth.Authenticate(ctx, "Bearer bad"), ErrUnauthorized)
	assert.ErrorIs(t, auth.Authenticate(ctx, "Bearer bad"), ErrUnauthorized)
	assert.Equal(t, int32(2), calls.Load(), "rejections must re-consult the upstream")
}

func TestAuthenticator_ValidationErrorRejects(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{
		Validate: func(ctx context.Context, token string) (bool, error) {
			return false, errors.New("idp unreachable")
		},
	})
	assert.ErrorIs(t, auth.Authenticate(context.Background(), "Bearer tok"), ErrUnauthorized)
}

func TestAuthenticator_ConcurrentSameTokenSingleFlight(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	auth := NewAuthenticator(AuthConfig{
		Validate: func(ctx context.Context, token string) (bool, error) {
			calls.Add(1)
			close(started)
			<-release
			return true, nil
		},
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = auth.Authenticate(ctx, "Bearer tok")
	}()
	<-started

	for i := 1; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = auth.Authenticate(ctx, "Bearer tok")
		}(i)
	}
	close(release)
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int32(1), calls.Load(), "concurrent lookups must collapse to one upstream call")
}
