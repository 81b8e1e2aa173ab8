package bridge

import (
	"fmt"
	"testing"

	"citymayor.ai/internal/protocol"
)

func batchWithReason(reason string) protocol.Batch {
	return protocol.Batch{
		Actions: []protocol.Intent{{Type: protocol.IntentSetTaxRate, Rate: 10}},
		Reason:  reason,
	}
}

func TestBatchQueue_FIFO(t *testing.T) {
	b := New()

	if n := b.EnqueueBatch(batchWithReason("A")); n != 1 {
		t.Fatalf("queue length after first enqueue = %d", n)
	}
	if n := b.EnqueueBatch(batchWithReason("B")); n != 2 {
		t.Fatalf("queue length after second enqueue = %d", n)
	}

	first, ok := b.DequeueBatch()
	if !ok || first.Reason != "A" {
		t.Fatalf("first dequeue = %+v %v", first, ok)
	}
	second, ok := b.DequeueBatch()
	if !ok || second.Reason != "B" {
		t.Fatalf("second dequeue = %+v %v", second, ok)
	}
	if _, ok := b.DequeueBatch(); ok {
		t.Fatalf("dequeue on empty queue returned a batch")
	}
	if b.QueueLen() != 0 {
		t.Fatalf("queue length = %d", b.QueueLen())
	}
}

func TestObservationSlot_LatestWins(t *testing.T) {
	b := New()
	if _, _, ok := b.Observation(); ok {
		t.Fatalf("fresh bridge reported an observation")
	}

	b.SetObservation(&protocol.Observation{At: 1})
	b.SetObservation(&protocol.Observation{At: 2})

	obs, at, ok := b.Observation()
	if !ok || obs.At != 2 {
		t.Fatalf("observation = %+v %v", obs, ok)
	}
	if at.IsZero() {
		t.Fatalf("receipt time not stamped")
	}
}

func TestMessageRing_CapAndEviction(t *testing.T) {
	b := New()
	for i := 0; i < MaxMessageHistory+10; i++ {
		b.AddMessage(protocol.MsgStatus, fmt.Sprintf("m%d", i))
	}

	msgs := b.MessagesSince("")
	if len(msgs) != MaxMessageHistory {
		t.Fatalf("retained %d messages, want %d", len(msgs), MaxMessageHistory)
	}
	if msgs[0].Content != "m10" {
		t.Fatalf("oldest retained = %q, want m10", msgs[0].Content)
	}
	if msgs[len(msgs)-1].Content != fmt.Sprintf("m%d", MaxMessageHistory+9) {
		t.Fatalf("newest retained = %q", msgs[len(msgs)-1].Content)
	}
}

func TestMessagesSince_CursorSemantics(t *testing.T) {
	b := New()
	first := b.AddMessage(protocol.MsgThinking, "one")
	b.AddMessage(protocol.MsgAction, "two")
	last := b.AddMessage(protocol.MsgStatus, "three")

	after := b.MessagesSince(first.ID)
	if len(after) != 2 || after[0].Content != "two" || after[1].Content != "three" {
		t.Fatalf("since first = %+v", after)
	}

	if got := b.MessagesSince(last.ID); len(got) != 0 {
		t.Fatalf("since last = %+v", got)
	}

	// Unknown cursor falls back to full history.
	if got := b.MessagesSince("msg_nope"); len(got) != 3 {
		t.Fatalf("since unknown = %d messages", len(got))
	}
}

func TestMessages_UniqueIDs(t *testing.T) {
	b := New()
	a := b.AddMessage(protocol.MsgStatus, "x")
	c := b.AddMessage(protocol.MsgStatus, "x")
	if a.ID == c.ID || a.ID == "" {
		t.Fatalf("ids not unique: %q %q", a.ID, c.ID)
	}
}

func TestAdvice_DestructiveRead(t *testing.T) {
	b := New()
	b.AddAdvice("lower taxes")
	b.AddAdvice("build a school")

	unread := b.TakeUnreadAdvice()
	if len(unread) != 2 {
		t.Fatalf("first read = %d entries", len(unread))
	}
	if unread[0].Content != "lower taxes" || unread[1].Content != "build a school" {
		t.Fatalf("advice order = %+v", unread)
	}
	for _, a := range unread {
		if !a.Read {
			t.Fatalf("returned advice not marked read: %+v", a)
		}
	}

	if again := b.TakeUnreadAdvice(); len(again) != 0 {
		t.Fatalf("second read = %d entries", len(again))
	}

	b.AddAdvice("later")
	later := b.TakeUnreadAdvice()
	if len(later) != 1 || later[0].Content != "later" {
		t.Fatalf("post-read advice = %+v", later)
	}
}
