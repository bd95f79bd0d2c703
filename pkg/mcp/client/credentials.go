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

package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TokenSource supplies the service-to-service bearer token attached to
// every gateway request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token.
type StaticTokenSource string

// Token implements TokenSource.
func (s StaticTokenSource) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("no service token configured")
	}
	return string(s), nil
}

// DefaultTokenTTL is how long a fetched credential is reused before
// refreshing, so upstream permission changes are picked up.
const DefaultTokenTTL = 5 * time.Minute

// FetchFunc obtains a fresh credential from an upstream issuer.
type FetchFunc func(ctx context.Context) (string, error)

// CachingTokenSource caches a fetched credential for a TTL. Concurrent
// callers during a refresh share a single upstream fetch; a stale token is
// served while a refresh is failing so transient issuer outages don't take
// down tool calls.
type CachingTokenSource struct {
	fetch  FetchFunc
	ttl    time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

// NewCachingTokenSource creates a TokenSource over the given fetch function.
// A ttl of 0 uses DefaultTokenTTL.
func NewCachingTokenSource(fetch FetchFunc, ttl time.Duration, logger *zap.Logger) *CachingTokenSource {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingTokenSource{
		fetch:  fetch,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Token returns the cached credential, refreshing it when expired.
func (c *CachingTokenSource) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expires) {
		return c.token, nil
	}

	token, err := c.fetch(ctx)
	if err != nil {
		if c.token != "" {
			c.logger.Warn("token refresh failed, serving cached credential", zap.Error(err))
			return c.token, nil
		}
		return "", fmt.Errorf("failed to fetch service token: %w", err)
	}

	c.token = token
	c.expires = c.now().Add(c.ttl)
	return c.token, nil
}
