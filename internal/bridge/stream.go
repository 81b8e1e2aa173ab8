package bridge

import (
	"encoding/json"
	"sync"

	"citymayor.ai/internal/protocol"
)

// Sink is a subscriber's write capability. A failed write is swallowed;
// cleanup relies solely on the subscriber's own Unregister call.
type Sink func(event []byte) error

// Broadcaster fans short text chunks out to every registered sink,
// grouped into named streams delimited by start/end events. Delivery is
// at-most-once: nothing is buffered for future subscribers.
type Broadcaster struct {
	mu sync.Mutex

	sinks map[string]Sink

	streamID string
	buffer   string
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{sinks: map[string]Sink{}}
}

// Register adds a sink and returns its subscriber id.
func (br *Broadcaster) Register(sink Sink) string {
	id := newID("client")
	br.mu.Lock()
	defer br.mu.Unlock()
	br.sinks[id] = sink
	return id
}

// Unregister removes a subscriber. Idempotent; unknown ids are a no-op.
func (br *Broadcaster) Unregister(id string) {
	br.mu.Lock()
	defer br.mu.Unlock()
	delete(br.sinks, id)
}

// Subscribers returns the current sink count. Callers may drop content
// outright when it is zero.
func (br *Broadcaster) Subscribers() int {
	br.mu.Lock()
	defer br.mu.Unlock()
	return len(br.sinks)
}

// CurrentStream returns the active stream id (empty when none) and the
// accumulated buffer.
func (br *Broadcaster) CurrentStream() (streamID, buffer string) {
	br.mu.Lock()
	defer br.mu.Unlock()
	return br.streamID, br.buffer
}

// Push broadcasts one chunk. A stream begins implicitly on the first
// push after none is active, or explicitly when explicitID differs from
// the current stream; either way the buffer resets and a start event
// goes out. done ends the stream so the next push starts fresh.
func (br *Broadcaster) Push(content string, done bool, explicitID string) (streamID, chunkID string) {
	br.mu.Lock()
	defer br.mu.Unlock()

	if br.streamID == "" || (explicitID != "" && explicitID != br.streamID) {
		if explicitID != "" {
			br.streamID = explicitID
		} else {
			br.streamID = newID("stream")
		}
		br.buffer = ""
		br.broadcastLocked(protocol.StreamEvent{
			Type: protocol.StreamEventStart,
			Data: protocol.StreamMarker{StreamID: br.streamID, At: nowMillis()},
		})
	}

	chunk := protocol.StreamChunk{
		ID:       newID("chunk"),
		StreamID: br.streamID,
		Content:  content,
		At:       nowMillis(),
		Done:     done,
	}
	br.buffer += content
	br.broadcastLocked(protocol.StreamEvent{Type: protocol.StreamEventChunk, Data: chunk})

	if done {
		br.broadcastLocked(protocol.StreamEvent{
			Type: protocol.StreamEventEnd,
			Data: protocol.StreamMarker{StreamID: br.streamID, At: nowMillis()},
		})
		br.streamID = ""
		br.buffer = ""
	}
	return chunk.StreamID, chunk.ID
}

func (br *Broadcaster) broadcastLocked(ev protocol.StreamEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	for _, sink := range br.sinks {
		_ = sink(raw) // disconnected subscribers clean themselves up
	}
}
