package protocol

// ChatMessage kinds. The fixed set mirrors the phases of the agent's
// public monologue.
const (
	MsgThinking = "thinking"
	MsgAction   = "action"
	MsgStatus   = "status"
	MsgGreeting = "greeting"
	MsgResponse = "response"
)

var messageTypes = map[string]struct{}{
	MsgThinking: {},
	MsgAction:   {},
	MsgStatus:   {},
	MsgGreeting: {},
	MsgResponse: {},
}

func IsMessageType(t string) bool {
	_, ok := messageTypes[t]
	return ok
}

// ChatMessage is one entry of the public agent chat log.
type ChatMessage struct {
	ID      string `json:"id"`
	At      int64  `json:"at"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Advice is one piece of operator guidance for the agent. Reading is
// destructive: a read marks it and it is never returned again.
type Advice struct {
	ID      string `json:"id"`
	At      int64  `json:"at"`
	Content string `json:"content"`
	Read    bool   `json:"read"`
}

// StreamChunk is one text fragment of a token stream.
type StreamChunk struct {
	ID       string `json:"id"`
	StreamID string `json:"streamId"`
	Content  string `json:"content"`
	At       int64  `json:"at"`
	Done     bool   `json:"done"`
}

// Stream event types.
const (
	StreamEventStart = "start"
	StreamEventChunk = "chunk"
	StreamEventEnd   = "end"
)

// StreamEvent is the serialized unit written to every stream subscriber.
// Data is a StreamChunk for chunk events and a StreamMarker for
// start/end.
type StreamEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// StreamMarker delimits a stream on start/end events.
type StreamMarker struct {
	StreamID string `json:"streamId"`
	At       int64  `json:"at"`
}
