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
package tools

import "context"

type contextKey string

const userTokenKey contextKey = "datascope.user_token"

// WithUserToken attaches the end user's data-access token to the context.
// The gateway extracts it from the X-User-Token header before dispatch;
// warehouse tools forward it upstream so permission checks apply to the
// human, not the service account. This is a separate trust domain from the
// service bearer token and the two are never conflated.
func WithUserToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, userTokenKey, token)
}

// UserTokenFromContext returns the per-user token, or "" when absent.
func UserTokenFromContext(ctx context.Context) string {
	if tok, ok := ctx.Value(userTokenKey).(string); ok {
		return tok
	}
	return ""
}
