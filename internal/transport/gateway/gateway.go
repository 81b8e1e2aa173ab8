// Package gateway exposes the agent bridge over HTTP: intent enqueue and
// dequeue, observation publish/read, chat messages, operator advice and
// the server-push token stream. Every response is one JSON object with
// at minimum an ok boolean; failures carry an enumerated error code.
package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"citymayor.ai/internal/bridge"
	"citymayor.ai/internal/protocol"
)

const tokenHeader = "X-Agent-Token"

const maxBodyBytes = 1 << 20

// AuditIndex receives copies of accepted writes for the optional
// read-model index. Implementations must never block.
type AuditIndex interface {
	RecordBatch(batch protocol.Batch, queued int)
	RecordMessage(msg protocol.ChatMessage)
	RecordAdvice(adv protocol.Advice)
}

// Server holds the bridge context plus the shared secret. An empty
// token disables the whole bridge: every endpoint answers 404 DISABLED.
type Server struct {
	bridge *bridge.Bridge
	token  string
	log    *log.Logger
	index  AuditIndex // optional
}

func NewServer(b *bridge.Bridge, token string, logger *log.Logger) *Server {
	return &Server{bridge: b, token: token, log: logger}
}

// SetAuditIndex attaches the optional write-only index.
func (s *Server) SetAuditIndex(idx AuditIndex) { s.index = idx }

// Register installs all bridge routes on mux under /api/agent/.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/agent/act", s.handleAct)
	mux.HandleFunc("/api/agent/next", s.handleNext)
	mux.HandleFunc("/api/agent/observe", s.handleObserve)
	mux.HandleFunc("/api/agent/messages", s.handleMessages)
	mux.HandleFunc("/api/agent/advice", s.handleAdvice)
	mux.HandleFunc("/api/agent/stream", s.handleStream)
}

func (s *Server) enabled() bool { return s.token != "" }

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func fail(rw http.ResponseWriter, status int, code, message string) {
	writeJSON(rw, status, map[string]any{
		"ok":    false,
		"error": protocol.ErrorBody{Code: code, Message: message},
	})
}

// requireToken enforces the shared secret. It reports whether the
// request may proceed; on false the response has been written.
func (s *Server) requireToken(rw http.ResponseWriter, r *http.Request) bool {
	if !s.enabled() {
		fail(rw, http.StatusNotFound, protocol.ErrDisabled, "Agent bridge disabled")
		return false
	}
	if r.Header.Get(tokenHeader) != s.token {
		fail(rw, http.StatusUnauthorized, protocol.ErrUnauthorized, "Invalid token")
		return false
	}
	return true
}

// requireEnabled checks only the feature flag (for the unauthenticated
// endpoints).
func (s *Server) requireEnabled(rw http.ResponseWriter) bool {
	if !s.enabled() {
		fail(rw, http.StatusNotFound, protocol.ErrDisabled, "Agent bridge disabled")
		return false
	}
	return true
}

// softToken is the /stream policy: a missing configured token leaves the
// stream open; a configured one must match.
func (s *Server) softToken(rw http.ResponseWriter, r *http.Request) bool {
	if s.token == "" {
		return true
	}
	if r.Header.Get(tokenHeader) != s.token {
		fail(rw, http.StatusUnauthorized, protocol.ErrUnauthorized, "Invalid token")
		return false
	}
	return true
}

// readBody drains the request body up front so no handler suspends on
// client I/O while holding bridge state.
func readBody(rw http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxBodyBytes))
	if err != nil {
		fail(rw, http.StatusBadRequest, protocol.ErrBadRequest, "unreadable body")
		return nil, false
	}
	return body, true
}

func (s *Server) handleAct(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		fail(rw, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	if !s.requireToken(rw, r) {
		return
	}
	body, ok := readBody(rw, r)
	if !ok {
		return
	}
	if err := protocol.ValidateActBody(body); err != nil {
		fail(rw, http.StatusBadRequest, protocol.ErrBadRequest, "Expected { actions: [] }")
		return
	}
	batch, err := protocol.DecodeBatch(body)
	if err != nil {
		fail(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}

	queued := s.bridge.EnqueueBatch(batch)
	if s.index != nil {
		s.index.RecordBatch(batch, queued)
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "queued": queued})
}

func (s *Server) handleNext(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		fail(rw, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
		return
	}
	if !s.requireToken(rw, r) {
		return
	}
	batch, ok := s.bridge.DequeueBatch()
	if !ok {
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "actions": batch})
}

func (s *Server) handleObserve(rw http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !s.requireToken(rw, r) {
			return
		}
		obs, _, ok := s.bridge.Observation()
		if !ok {
			fail(rw, http.StatusNotFound, protocol.ErrNoObservation, "No observation published yet")
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "observation": obs})

	case http.MethodPost:
		if !s.requireToken(rw, r) {
			return
		}
		body, ok := readBody(rw, r)
		if !ok {
			return
		}
		if err := protocol.ValidateObservationBody(body); err != nil {
			fail(rw, http.StatusBadRequest, protocol.ErrBadRequest, "Expected { observation }")
			return
		}
		obs, err := protocol.DecodeObservation(body)
		if err != nil {
			fail(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
			return
		}
		s.bridge.SetObservation(obs)
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "observation": obs})

	default:
		fail(rw, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
	}
}

func (s *Server) handleMessages(rw http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// Readable without a token so the public chat widget can poll.
		if !s.requireEnabled(rw) {
			return
		}
		since := r.URL.Query().Get("since")
		messages := s.bridge.MessagesSince(since)
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "messages": messages})

	case http.MethodPost:
		if !s.requireToken(rw, r) {
			return
		}
		body, ok := readBody(rw, r)
		if !ok {
			return
		}
		var req struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			fail(rw, http.StatusBadRequest, protocol.ErrBadRequest, "Expected JSON body")
			return
		}
		if !protocol.IsMessageType(req.Type) {
			fail(rw, http.StatusBadRequest, protocol.ErrBadRequest, "Invalid message type")
			return
		}
		if req.Content == "" {
			fail(rw, http.StatusBadRequest, protocol.ErrBadRequest, "Content required")
			return
		}
		msg := s.bridge.AddMessage(req.Type, req.Content)
		if s.index != nil {
			s.index.RecordMessage(msg)
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "message": msg})

	default:
		fail(rw, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
	}
}

func (s *Server) handleAdvice(rw http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !s.requireToken(rw, r) {
			return
		}
		advice := s.bridge.TakeUnreadAdvice()
		if advice == nil {
			advice = []protocol.Advice{}
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "advice": advice})

	case http.MethodPost:
		// Anyone watching the city may leave advice; only the agent
		// needs a token to read it.
		if !s.requireEnabled(rw) {
			return
		}
		body, ok := readBody(rw, r)
		if !ok {
			return
		}
		var req struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			fail(rw, http.StatusBadRequest, protocol.ErrBadRequest, "Expected JSON body")
			return
		}
		content := strings.TrimSpace(req.Content)
		if content == "" {
			fail(rw, http.StatusBadRequest, protocol.ErrBadRequest, "Content required")
			return
		}
		adv := s.bridge.AddAdvice(content)
		if s.index != nil {
			s.index.RecordAdvice(adv)
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "advice": adv})

	default:
		fail(rw, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
	}
}

func (s *Server) handleStream(rw http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleStreamSubscribe(rw, r)
	case http.MethodPost:
		s.handleStreamPush(rw, r)
	default:
		fail(rw, http.StatusMethodNotAllowed, protocol.ErrBadRequest, "method not allowed")
	}
}

func (s *Server) handleStreamPush(rw http.ResponseWriter, r *http.Request) {
	if !s.softToken(rw, r) {
		return
	}
	body, ok := readBody(rw, r)
	if !ok {
		return
	}
	var req struct {
		StreamID string  `json:"streamId"`
		Content  *string `json:"content"`
		Done     bool    `json:"done"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Content == nil {
		fail(rw, http.StatusBadRequest, protocol.ErrInvalidRequest, "content must be a string")
		return
	}

	// At-most-once: with nobody listening the chunk is dropped, never
	// buffered for a future subscriber.
	if s.bridge.Stream().Subscribers() == 0 {
		streamID := req.StreamID
		if streamID == "" {
			streamID = "no_clients"
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "streamId": streamID, "chunkId": "dropped"})
		return
	}

	streamID, chunkID := s.bridge.Stream().Push(*req.Content, req.Done, req.StreamID)
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "streamId": streamID, "chunkId": chunkID})
}

func (s *Server) handleStreamSubscribe(rw http.ResponseWriter, r *http.Request) {
	if !s.softToken(rw, r) {
		return
	}
	flusher, ok := rw.(http.Flusher)
	if !ok {
		fail(rw, http.StatusInternalServerError, protocol.ErrInternal, "streaming unsupported")
		return
	}

	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache, no-transform")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("X-Accel-Buffering", "no")

	// The sink hands events to this handler's writer via a buffered
	// channel; a slow or dead subscriber drops events rather than
	// blocking the broadcaster.
	events := make(chan []byte, 64)
	id := s.bridge.Stream().Register(func(event []byte) error {
		select {
		case events <- event:
			return nil
		default:
			return fmt.Errorf("subscriber backlogged")
		}
	})
	defer s.bridge.Stream().Unregister(id)

	// Immediate keep-alive so dead subscribers surface early.
	fmt.Fprintf(rw, ": connected as %s\n\n", id)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-events:
			if _, err := fmt.Fprintf(rw, "data: %s\n\n", event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
