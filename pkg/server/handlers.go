package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// ChatRequest is the body of POST /chat and of each WebSocket text frame.
type ChatRequest struct {
	Message *string `json:"message"`
}

// ChatResponse is the envelope returned for every authenticated chat
// message. Error is null on success.
type ChatResponse struct {
	Response string  `json:"response"`
	Success  bool    `json:"success"`
	Error    *string `json:"error"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "healthy", Message: "Agent API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "healthy", Message: "API is operational"})
}

// requireAPIKey rejects requests whose secret does not match before next
// runs.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" && isUpgrade(r) {
			key = r.URL.Query().Get(APIKeyQuery)
		}

		if !s.validKey(key) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "Invalid API key"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) validKey(key string) bool {
	if key == "" || s.cfg.APIKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.APIKey)) == 1
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "could not read body"})
		return
	}

	msg, err := decodeChatRequest(body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, s.answer(r.Context(), msg))
}

// answer runs the asker and maps the outcome onto the response envelope.
// Failures are reported in the envelope, never as an HTTP error.
func (s *Server) answer(ctx context.Context, msg string) ChatResponse {
	res, err := s.asker.Ask(ctx, msg)
	if err != nil {
		s.log.WarnContext(ctx, "chat failed", "request_id", RequestIDFromContext(ctx), "error", err)
		text := err.Error()
		return ChatResponse{Success: false, Error: &text}
	}
	return ChatResponse{Response: res.FinalOutput, Success: true}
}

func decodeChatRequest(body []byte) (string, error) {
	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", fmt.Errorf("invalid request body: %w", err)
	}
	if req.Message == nil {
		return "", errors.New("field required: message")
	}
	return *req.Message, nil
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.cfg.CORSOrigins),
	})
	if err != nil {
		s.log.WarnContext(r.Context(), "websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	conn.SetReadLimit(maxBodySize)
	ctx := r.Context()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				s.log.DebugContext(ctx, "websocket closed", "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			_ = conn.Close(websocket.StatusUnsupportedData, "text frames only")
			return
		}

		var resp ChatResponse
		if msg, err := decodeChatRequest(data); err != nil {
			text := err.Error()
			resp = ChatResponse{Error: &text}
		} else {
			resp = s.answer(ctx, msg)
		}

		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = wsjson.Write(writeCtx, conn, resp)
		cancel()
		if err != nil {
			return
		}
	}
}

func isUpgrade(r *http.Request) bool {
	return r.Header.Get("Upgrade") != ""
}

// originPatterns converts CORS origins into host patterns for the WebSocket
// origin check.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
