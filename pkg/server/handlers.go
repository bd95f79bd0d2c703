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
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/teradata-labs/datascope/pkg/agent"
	"github.com/teradata-labs/datascope/pkg/observability"
	"go.uber.org/zap"
)

// maxChatBody caps /chat request bodies at 1MB.
const maxChatBody = 1 << 20

// ChatRequest is the /chat request body.
type ChatRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the /chat response body.
type ChatResponse struct {
	Response        string  `json:"response"`
	ConversationID  string  `json:"conversation_id"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxChatBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	a := s.agent
	if s.exporter != nil {
		tracer := observability.NewTracer(req.ConversationID, s.exporter, s.logger)
		a = a.ForInvestigation(tracer)
	}

	resp, err := a.Investigate(r.Context(), agent.Request{
		Question:       req.Question,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		s.logger.Error("investigation rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Response:        resp.Text,
		ConversationID:  resp.ConversationID,
		DurationSeconds: resp.DurationSeconds,
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"persistence": "disabled"})
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to load stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
