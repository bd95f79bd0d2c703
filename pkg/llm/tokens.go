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

// Package llm provides token accounting shared by the provider clients and
// the conversation store.
package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teradata-labs/datascope/pkg/types"
)

// TokenCounter counts tokens for digest accounting and usage estimation.
// Uses tiktoken with cl100k_base encoding, a good approximation across the
// served models.
type TokenCounter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

var (
	globalTokenCounter *TokenCounter
	counterInitOnce    sync.Once
)

// GetTokenCounter returns a singleton token counter instance.
func GetTokenCounter() *TokenCounter {
	counterInitOnce.Do(func() {
		tkm, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// Fallback: approximate counting when the encoding is unavailable.
			globalTokenCounter = &TokenCounter{encoder: nil}
			return
		}
		globalTokenCounter = &TokenCounter{encoder: tkm}
	})
	return globalTokenCounter
}

// CountTokens returns the token count for a given text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoder == nil {
		// Char-based estimation if the encoder is not available.
		return len(text) / 4
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	tokens := tc.encoder.Encode(text, nil, nil)
	return len(tokens)
}

// EstimateMessagesTokens estimates the token count of a conversation,
// including per-message formatting overhead.
func (tc *TokenCounter) EstimateMessagesTokens(messages []types.Message) int {
	total := 0
	for _, msg := range messages {
		// Role and message framing cost roughly ten tokens per message.
		total += 10
		total += tc.CountTokens(msg.Content)
		if len(msg.ToolCalls) > 0 {
			total += tc.CountTokens(fmt.Sprintf("%v", msg.ToolCalls))
		}
	}
	return total
}

// EstimateUsage approximates the usage block for endpoints that omit one.
// Input counts the request messages; output counts the generated content
// and tool calls.
func EstimateUsage(messages []types.Message, resp *types.LLMResponse) types.Usage {
	tc := GetTokenCounter()
	in := tc.EstimateMessagesTokens(messages)
	out := tc.CountTokens(resp.Content)
	for _, call := range resp.ToolCalls {
		out += 10
		out += tc.CountTokens(call.Name)
		out += tc.CountTokens(fmt.Sprintf("%v", call.Input))
	}
	return types.Usage{
		InputTokens:  in,
		OutputTokens: out,
		TotalTokens:  in + out,
	}
}
