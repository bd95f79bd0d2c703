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
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnauthorized is returned when the caller's service credential is
// missing or invalid.
var ErrUnauthorized = errors.New("unauthorized")

// verdictTTL bounds how long a remote validation verdict is trusted before
// the upstream is consulted again, so permission revocations take effect.
const verdictTTL = 5 * time.Minute

// ValidateFunc checks a bearer token against an upstream identity provider.
type ValidateFunc func(ctx context.Context, token string) (bool, error)

// Authenticator checks the service-to-service bearer token on every request
// before dispatch. A static token is compared in constant time; an optional
// remote validator caches verdicts per token for verdictTTL, with concurrent
// lookups for the same token collapsed into one upstream call.
type Authenticator struct {
	serviceToken string
	validate     ValidateFunc
	logger       *zap.Logger

	mu       sync.Mutex
	verdicts map[string]*verdict
	now      func() time.Time
}

type verdict struct {
	ok      bool
	expires time.Time
	ready   chan struct{} // closed when the upstream call completes
}

// AuthConfig configures an Authenticator.
type AuthConfig struct {
	// ServiceToken is the static bearer token frontends must present.
	ServiceToken string
	// Validate, when set, is consulted instead of the static token.
	Validate ValidateFunc
	Logger   *zap.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(config AuthConfig) *Authenticator {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Authenticator{
		serviceToken: config.ServiceToken,
		validate:     config.Validate,
		logger:       config.Logger,
		verdicts:     make(map[string]*verdict),
		now:          time.Now,
	}
}

// Authenticate checks the Authorization header value ("Bearer <token>").
func (a *Authenticator) Authenticate(ctx context.Context, authHeader string) error {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}

	if a.validate != nil {
		return a.authenticateRemote(ctx, token)
	}

	if a.serviceToken == "" {
		return fmt.Errorf("%w: no service token configured", ErrUnauthorized)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.serviceToken)) != 1 {
		return fmt.Errorf("%w: invalid service token", ErrUnauthorized)
	}
	return nil
}

// authenticateRemote consults the upstream validator, caching the verdict.
// The first caller for a token performs the upstream call while later
// callers for the same token wait on it.
func (a *Authenticator) authenticateRemote(ctx context.Context, token string) error {
	a.mu.Lock()
	v, exists := a.verdicts[token]
	if exists {
		select {
		case <-v.ready:
			if a.now().Before(v.expires) {
				a.mu.Unlock()
				if !v.ok {
					return fmt.Errorf("%w: token rejected", ErrUnauthorized)
				}
				return nil
			}
			// Expired: fall through and refresh.
		default:
			// Validation in flight: wait outside the lock.
			a.mu.Unlock()
			select {
			case <-v.ready:
			case <-ctx.Done():
				return ctx.Err()
			}
			if !v.ok {
				return fmt.Errorf("%w: token rejected", ErrUnauthorized)
			}
			return nil
		}
	}

	v = &verdict{ready: make(chan struct{})}
	a.verdicts[token] = v
	a.mu.Unlock()

	ok, err := a.validate(ctx, token)
	if err != nil {
		a.logger.Warn("token validation failed", zap.Error(err))
		ok = false
	}

	a.mu.Lock()
	v.ok = ok
	v.expires = a.now().Add(verdictTTL)
	close(v.ready)
	if !ok {
		// Don't cache negative verdicts past this call's waiters.
		delete(a.verdicts, token)
	}
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: token rejected", ErrUnauthorized)
	}
	return nil
}
