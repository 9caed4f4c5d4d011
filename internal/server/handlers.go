package server

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/go-chi/chi/v5"

	"github.com/petasbytes/fsagent/internal/dispatch"
	"github.com/petasbytes/fsagent/internal/logging"
	"github.com/petasbytes/fsagent/internal/safety"
	"github.com/petasbytes/fsagent/internal/telemetry"
)

// FallbackMessage is returned by /agent when the run fails.
const FallbackMessage = "Couldn't process the request, rephrase it and try again!"

const maxBodyBytes = 1 << 20

type agentMessage struct {
	Msg string `json:"msg"`
}

type toolInfo struct {
	Name        string                         `json:"name"`
	Description string                         `json:"description"`
	ReadOnly    bool                           `json:"read_only"`
	InputSchema anthropic.ToolInputSchemaParam `json:"input_schema"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, agentMessage{Msg: "Welcome to the fsagent API. POST an instruction to /agent."})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.version != "" {
		body["version"] = s.version
	}
	if b, ok := s.agent.(interface{ BreakerState() string }); ok {
		body["model_breaker"] = b.BreakerState()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		writeJSON(w, http.StatusServiceUnavailable, agentMessage{Msg: "agent unavailable: no model credentials configured"})
		return
	}

	var req agentMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, agentMessage{Msg: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Msg) == "" {
		writeJSON(w, http.StatusBadRequest, agentMessage{Msg: "msg is required"})
		return
	}

	ans, err := s.agent.Run(r.Context(), req.Msg)
	if err != nil {
		id, _ := telemetry.RequestIDFromContext(r.Context())
		logging.Error().
			Add(logging.Component("http")).
			Add(logging.RequestID(id)).
			Add(logging.ErrorField(err)).
			Msg("agent run failed")
		writeJSON(w, http.StatusOK, agentMessage{Msg: FallbackMessage})
		return
	}
	writeJSON(w, http.StatusOK, agentMessage{Msg: ans.Text})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	defs := s.dispatcher.Definitions()
	out := make([]toolInfo, 0, len(defs))
	for _, d := range defs {
		out = append(out, toolInfo{
			Name:        d.Name,
			Description: d.Description,
			ReadOnly:    d.ReadOnly,
			InputSchema: d.InputSchema,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		res := dispatch.Failure(safety.InvalidArguments("request body: %v", err))
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}

	res := s.dispatcher.Dispatch(r.Context(), dispatch.ToolRequest{
		Tool:      chi.URLParam(r, "name"),
		Arguments: json.RawMessage(body),
	})
	writeJSON(w, statusFor(res), res)
}

// statusFor maps a tool outcome onto an HTTP status.
func statusFor(res dispatch.ToolResult) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Code {
	case safety.CodeInvalidArguments:
		return http.StatusBadRequest
	case safety.CodePathEscapesRoot, safety.CodePathDenied:
		return http.StatusForbidden
	case safety.CodeUnsupportedTool:
		return http.StatusNotFound
	case safety.CodeFileSystem, safety.CodeNotAFile, safety.CodeNotADirectory:
		switch {
		case errors.Is(res.Err, fs.ErrExist):
			return http.StatusConflict
		case errors.Is(res.Err, fs.ErrNotExist):
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Add(logging.Component("http")).Add(logging.ErrorField(err)).Msg("write response")
	}
}
