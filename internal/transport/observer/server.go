// Package observer serves a loopback-only websocket that mirrors the
// bridge's stream events and chat messages to local tooling (debug UIs,
// transcript recorders) without consuming the agent-facing SSE channel.
package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"citymayor.ai/internal/bridge"
)

type Server struct {
	bridge *bridge.Bridge
	log    *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(b *bridge.Bridge, logger *log.Logger) *Server {
	return &Server{
		bridge: b,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
	}
}

// hello is the first frame on every observer connection.
type hello struct {
	Type           string `json:"type"`
	SubscriberID   string `json:"subscriber_id"`
	ActiveStreamID string `json:"active_stream_id,omitempty"`
	Buffer         string `json:"buffer,omitempty"`
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		events := make(chan []byte, 256)
		id := s.bridge.Stream().Register(func(event []byte) error {
			select {
			case events <- event:
				return nil
			default:
				return errBacklogged
			}
		})
		defer s.bridge.Stream().Unregister(id)

		streamID, buffer := s.bridge.Stream().CurrentStream()
		if err := writeJSON(conn, hello{Type: "HELLO", SubscriberID: id, ActiveStreamID: streamID, Buffer: buffer}); err != nil {
			return
		}

		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(done)
			for b := range events {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}()

		// Reader loop: observers send nothing meaningful; reading just
		// detects the close.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		// Unregister first: the broadcaster's lock guarantees no sink
		// call is in flight once it returns, so the close cannot race a
		// send.
		s.bridge.Stream().Unregister(id)
		close(events)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

var errBacklogged = &backloggedError{}

type backloggedError struct{}

func (*backloggedError) Error() string { return "observer backlogged" }

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
