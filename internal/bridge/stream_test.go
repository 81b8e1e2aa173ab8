package bridge

import (
	"encoding/json"
	"errors"
	"testing"

	"citymayor.ai/internal/protocol"
)

type capturedEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func captureSink(events *[]capturedEvent) Sink {
	return func(raw []byte) error {
		var ev capturedEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		*events = append(*events, ev)
		return nil
	}
}

func TestBroadcaster_StreamLifecycle(t *testing.T) {
	br := NewBroadcaster()
	var events []capturedEvent
	id := br.Register(captureSink(&events))
	defer br.Unregister(id)

	streamID, chunkID := br.Push("Hello", false, "")
	if streamID == "" || chunkID == "" {
		t.Fatalf("ids not assigned: %q %q", streamID, chunkID)
	}

	gotID, buffer := br.CurrentStream()
	if gotID != streamID || buffer != "Hello" {
		t.Fatalf("mid-stream state = %q %q", gotID, buffer)
	}

	finalID, _ := br.Push(" world", true, "")
	if finalID != streamID {
		t.Fatalf("done chunk switched streams: %q vs %q", finalID, streamID)
	}

	// start, chunk, chunk, end.
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	want := []string{
		protocol.StreamEventStart,
		protocol.StreamEventChunk,
		protocol.StreamEventChunk,
		protocol.StreamEventEnd,
	}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event[%d] = %q, want %q", i, types[i], want[i])
		}
	}

	var chunk protocol.StreamChunk
	if err := json.Unmarshal(events[1].Data, &chunk); err != nil {
		t.Fatalf("chunk decode: %v", err)
	}
	if chunk.Content != "Hello" || chunk.StreamID != streamID || chunk.Done {
		t.Fatalf("chunk = %+v", chunk)
	}

	// done resets the active stream.
	if gotID, buffer := br.CurrentStream(); gotID != "" || buffer != "" {
		t.Fatalf("post-done state = %q %q", gotID, buffer)
	}
}

func TestBroadcaster_BufferAccumulates(t *testing.T) {
	br := NewBroadcaster()
	br.Push("Hello", false, "")
	br.Push(" world", false, "")

	_, buffer := br.CurrentStream()
	if buffer != "Hello world" {
		t.Fatalf("buffer = %q", buffer)
	}
}

func TestBroadcaster_ExplicitStreamIDStartsFresh(t *testing.T) {
	br := NewBroadcaster()
	var events []capturedEvent
	id := br.Register(captureSink(&events))
	defer br.Unregister(id)

	first, _ := br.Push("a", false, "")
	second, _ := br.Push("b", false, "run_2")
	if second != "run_2" || first == second {
		t.Fatalf("explicit id not honored: %q then %q", first, second)
	}

	_, buffer := br.CurrentStream()
	if buffer != "b" {
		t.Fatalf("new stream inherited buffer: %q", buffer)
	}

	// The superseding push emits a fresh start event, no end for the
	// abandoned stream.
	starts := 0
	for _, ev := range events {
		if ev.Type == protocol.StreamEventStart {
			starts++
		}
	}
	if starts != 2 {
		t.Fatalf("start events = %d, want 2", starts)
	}

	// Same explicit id keeps the stream.
	third, _ := br.Push("c", false, "run_2")
	if third != "run_2" {
		t.Fatalf("matching explicit id restarted: %q", third)
	}
}

func TestBroadcaster_AtMostOnceDelivery(t *testing.T) {
	br := NewBroadcaster()

	// Nobody subscribed: the chunk is gone for good.
	br.Push("lost", true, "")

	var events []capturedEvent
	id := br.Register(captureSink(&events))
	defer br.Unregister(id)

	if len(events) != 0 {
		t.Fatalf("late subscriber received %d buffered events", len(events))
	}

	br.Push("fresh", true, "")
	if len(events) != 3 { // start, chunk, end
		t.Fatalf("live events = %d, want 3", len(events))
	}
}

func TestBroadcaster_FailingSinkDoesNotBlockOthers(t *testing.T) {
	br := NewBroadcaster()

	var healthy []capturedEvent
	badID := br.Register(func([]byte) error { return errors.New("gone") })
	goodID := br.Register(captureSink(&healthy))
	defer br.Unregister(badID)
	defer br.Unregister(goodID)

	br.Push("x", true, "")
	if len(healthy) != 3 {
		t.Fatalf("healthy sink got %d events", len(healthy))
	}
	// The failed sink stays registered until it unregisters itself.
	if br.Subscribers() != 2 {
		t.Fatalf("subscribers = %d", br.Subscribers())
	}
}

func TestBroadcaster_UnregisterIdempotent(t *testing.T) {
	br := NewBroadcaster()
	id := br.Register(func([]byte) error { return nil })
	br.Unregister(id)
	br.Unregister(id)
	br.Unregister("client_unknown")
	if br.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", br.Subscribers())
	}
}
