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

// Package agent implements the investigation orchestration loop: a bounded
// LLM tool-calling state machine that gathers evidence through the tool
// catalog and always terminates with a prose answer.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teradata-labs/datascope/pkg/observability"
	"github.com/teradata-labs/datascope/pkg/session"
	"github.com/teradata-labs/datascope/pkg/tools"
	"github.com/teradata-labs/datascope/pkg/types"
	"go.uber.org/zap"
)

// DefaultMaxIterations bounds the LLM / tool round-trips per investigation.
// The bound always wins over the final-report heuristic; the loop issues at
// most DefaultMaxIterations+1 LLM calls (the +1 is the forced finalization).
const DefaultMaxIterations = 5

// finalizeInstruction is appended as a synthetic user message when the loop
// forces finalization. The follow-up call binds no tools, so the model
// cannot keep investigating.
const finalizeInstruction = "Stop investigating. Using only the evidence gathered so far, produce the final structured report now. Include **What I Found**, **The Problem** (root cause), and **How to Fix** sections."

// Request is one investigation ask.
type Request struct {
	// Question is the user's data-quality question.
	Question string

	// ConversationID continues an existing conversation when set.
	ConversationID string

	// UserID identifies the end user for persistence (optional).
	UserID string
}

// Response is the outcome of one investigation. Text is always non-empty
// prose; failures are folded into it rather than surfaced as errors.
type Response struct {
	Text            string
	ConversationID  string
	DurationSeconds float64
	ToolsUsed       []string
	Iterations      int
}

// Agent runs investigations against a bound tool catalog and model config.
//
// An Agent without a per-investigation tracer is immutable after
// construction and safe to share across concurrent requests. Use
// ForInvestigation to derive a per-request agent carrying a tracer.
type Agent struct {
	provider      types.LLMProvider
	registry      *tools.Registry
	executor      *tools.Executor
	store         *session.Store
	tracer        observability.Tracer
	logger        *zap.Logger
	maxIterations int
	isFinalReport FinalReportCheck
	systemPrompt  string
}

// Option configures an Agent.
type Option func(*Agent)

// WithStore attaches the conversation state store. Persistence is
// best-effort: store failures are logged and never fail an investigation.
func WithStore(store *session.Store) Option {
	return func(a *Agent) { a.store = store }
}

// WithTracer attaches an observability tracer.
func WithTracer(tracer observability.Tracer) Option {
	return func(a *Agent) { a.tracer = tracer }
}

// WithMaxIterations overrides the iteration bound.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithFinalReportCheck replaces the final-report predicate.
func WithFinalReportCheck(check FinalReportCheck) Option {
	return func(a *Agent) {
		if check != nil {
			a.isFinalReport = check
		}
	}
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		if prompt != "" {
			a.systemPrompt = prompt
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAgent creates an investigation agent over the given provider and
// tool registry.
func NewAgent(provider types.LLMProvider, registry *tools.Registry, opts ...Option) *Agent {
	a := &Agent{
		provider:      provider,
		registry:      registry,
		executor:      tools.NewExecutor(registry),
		tracer:        &observability.NoOpTracer{},
		logger:        zap.NewNop(),
		maxIterations: DefaultMaxIterations,
		isFinalReport: DefaultFinalReportCheck,
		systemPrompt:  defaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ForInvestigation derives a per-request agent carrying the given tracer.
// The derived agent shares the compiled catalog and model config; only the
// tracer differs, so the base agent stays reusable across requests.
func (a *Agent) ForInvestigation(tracer observability.Tracer) *Agent {
	clone := *a
	if tracer != nil {
		clone.tracer = tracer
	}
	return &clone
}

// Investigate runs one investigation to completion.
//
// The returned Response always carries prose text: model-endpoint failures
// become "LLM Error: ..." text and unexpected panics become an apologetic
// message. The error return is reserved for an invalid Request. The tracer
// is finalized on every path.
func (a *Agent) Investigate(ctx context.Context, req Request) (resp *Response, err error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	start := time.Now()
	conversationID := a.ensureConversation(ctx, req)

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("investigation panicked", zap.Any("panic", r))
			a.tracer.Fail(fmt.Errorf("investigation panic: %v", r))
			resp = &Response{
				Text:            fmt.Sprintf("I'm sorry, the investigation failed unexpectedly (%v). Please try again.", r),
				ConversationID:  conversationID,
				DurationSeconds: time.Since(start).Seconds(),
			}
			err = nil
		}
	}()

	// Prior turns are digested to plain text, never replayed as raw
	// tool-call/tool-result pairs.
	digest := ""
	if a.store != nil && req.ConversationID != "" {
		digest = a.store.SummarizePriorTurns(ctx, conversationID)
	}

	a.persistMessage(ctx, conversationID, types.Message{
		Role:      types.RoleUser,
		Content:   req.Question,
		Timestamp: time.Now(),
	})

	outcome := a.runLoop(ctx, req.Question, digest)

	if outcome.failed {
		a.tracer.Fail(outcome.err)
	} else {
		a.tracer.Complete(req.Question, outcome.text)
	}

	a.persistMessage(ctx, conversationID, types.Message{
		Role:      types.RoleAssistant,
		Content:   outcome.text,
		Timestamp: time.Now(),
	})

	duration := time.Since(start)
	a.recordInvestigation(ctx, conversationID, req.Question, outcome, duration)

	a.logger.Info("investigation complete",
		zap.String("conversation_id", conversationID),
		zap.Int("iterations", outcome.iterations),
		zap.Strings("tools_used", outcome.toolsUsed),
		zap.Bool("failed", outcome.failed),
		zap.Duration("duration", duration),
	)

	return &Response{
		Text:            outcome.text,
		ConversationID:  conversationID,
		DurationSeconds: duration.Seconds(),
		ToolsUsed:       outcome.toolsUsed,
		Iterations:      outcome.iterations,
	}, nil
}

// outcome is the internal result of the loop.
type outcome struct {
	text       string
	toolsUsed  []string
	iterations int
	failed     bool
	err        error
}

// runLoop drives the state machine: GATHERING while tool calls are pending,
// FINALIZING when the model stalls or the iteration cap is reached.
func (a *Agent) runLoop(ctx context.Context, question, digest string) outcome {
	catalog := a.registry.ListTools()
	system := a.buildSystemPrompt(digest)

	messages := []types.Message{
		{Role: types.RoleSystem, Content: system, Timestamp: time.Now()},
		{Role: types.RoleUser, Content: question, Timestamp: time.Now()},
	}

	out := outcome{}
	for out.iterations < a.maxIterations {
		resp, err := a.chat(ctx, messages, catalog)
		if err != nil {
			out.text = fmt.Sprintf("LLM Error: %v", err)
			out.failed = true
			out.err = err
			return out
		}

		if len(resp.ToolCalls) > 0 {
			messages = append(messages, types.Message{
				Role:      types.RoleAssistant,
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
				Timestamp: time.Now(),
			})
			messages = append(messages, a.dispatchToolCalls(ctx, resp.ToolCalls, &out)...)
			out.iterations++
			continue
		}

		// First response wins verbatim; later ones must look like a report.
		if resp.Content != "" && (out.iterations == 0 || a.isFinalReport(resp.Content)) {
			out.text = resp.Content
			return out
		}

		break
	}

	out.text = a.finalize(ctx, messages, &out)
	return out
}

// dispatchToolCalls executes every call in emitted order and returns one
// tool message per call, in the same order. Unknown tools and handler
// failures become error results inline; the batch is never aborted.
func (a *Agent) dispatchToolCalls(ctx context.Context, calls []types.ToolCall, out *outcome) []types.Message {
	results := make([]types.Message, 0, len(calls))
	for _, call := range calls {
		start := time.Now()
		result := a.executor.Execute(ctx, call.Name, call.Input)
		rendered := result.Render()

		errText := ""
		if !result.OK() {
			errText = result.Error.Message
		}
		a.tracer.LogToolCall(call.Name, call.Input, rendered, errText, time.Since(start))
		out.toolsUsed = appendUnique(out.toolsUsed, call.Name)

		a.logger.Debug("tool executed",
			zap.String("tool", call.Name),
			zap.Bool("ok", result.OK()),
			zap.Int64("elapsed_ms", result.ExecutionTimeMs),
		)

		results = append(results, types.Message{
			Role:      types.RoleTool,
			Content:   rendered,
			ToolUseID: call.ID,
			Timestamp: time.Now(),
		})
	}
	return results
}

// finalize forces the closing report: one synthetic instruction, one LLM
// call with no tools bound. An empty or failed forced call degrades to a
// deterministic summary so the caller never sees an empty response.
func (a *Agent) finalize(ctx context.Context, messages []types.Message, out *outcome) string {
	messages = append(messages, types.Message{
		Role:      types.RoleUser,
		Content:   finalizeInstruction,
		Timestamp: time.Now(),
	})

	resp, err := a.chat(ctx, messages, nil)
	if err != nil {
		out.failed = true
		out.err = err
		return fmt.Sprintf("LLM Error: %v", err)
	}
	if resp.Content != "" {
		return resp.Content
	}

	a.logger.Warn("forced finalization returned empty content")
	return a.fallbackSummary(out.toolsUsed)
}

// fallbackSummary is the deterministic last resort when even the forced
// finalization call produces nothing.
func (a *Agent) fallbackSummary(toolsUsed []string) string {
	if len(toolsUsed) == 0 {
		return "The investigation completed but no findings could be summarized. No tools were invoked. Please rephrase the question or try again."
	}
	return fmt.Sprintf(
		"The investigation completed but the findings could not be summarized. Tools invoked: %s. The evidence was gathered but the final report generation failed; please try again.",
		strings.Join(toolsUsed, ", "),
	)
}

// chat issues one provider call and records it on the tracer.
func (a *Agent) chat(ctx context.Context, messages []types.Message, catalog []tools.Tool) (*types.LLMResponse, error) {
	start := time.Now()
	resp, err := a.provider.Chat(ctx, messages, catalog)
	a.tracer.LogLLMCall(a.provider.Model(), len(messages), resp, time.Since(start), err)
	return resp, err
}

// buildSystemPrompt prepends the prior-turn digest, when present, as a
// labeled block so follow-ups see summarized history instead of replayed
// tool exchanges.
func (a *Agent) buildSystemPrompt(digest string) string {
	if digest == "" {
		return a.systemPrompt
	}
	return fmt.Sprintf("Previous Context:\n%s\n---\n\n%s", digest, a.systemPrompt)
}

// ensureConversation resolves the conversation id, creating a row for new
// conversations when a store is attached. Store failures fall back to a
// generated id; persistence is never load-bearing.
func (a *Agent) ensureConversation(ctx context.Context, req Request) string {
	if req.ConversationID != "" {
		return req.ConversationID
	}
	if a.store != nil {
		id, err := a.store.CreateConversation(ctx, req.UserID, truncateTitle(req.Question))
		if err == nil {
			return id
		}
		a.logger.Warn("failed to create conversation", zap.Error(err))
	}
	return uuid.New().String()
}

func (a *Agent) persistMessage(ctx context.Context, conversationID string, msg types.Message) {
	if a.store == nil {
		return
	}
	if err := a.store.AppendMessage(ctx, conversationID, msg); err != nil {
		a.logger.Warn("failed to persist message",
			zap.String("conversation_id", conversationID),
			zap.String("role", msg.Role),
			zap.Error(err),
		)
	}
}

func (a *Agent) recordInvestigation(ctx context.Context, conversationID, question string, out outcome, duration time.Duration) {
	if a.store == nil {
		return
	}
	status := "completed"
	if out.failed {
		status = "failed"
	}
	now := time.Now()
	err := a.store.RecordInvestigation(ctx, session.Investigation{
		ConversationID:  conversationID,
		Question:        question,
		Status:          status,
		StartedAt:       now.Add(-duration),
		CompletedAt:     now,
		DurationSeconds: duration.Seconds(),
		ToolsUsed:       out.toolsUsed,
		Summary:         truncateTitle(out.text),
	})
	if err != nil {
		a.logger.Warn("failed to record investigation", zap.Error(err))
	}
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}

func truncateTitle(s string) string {
	const max = 120
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
