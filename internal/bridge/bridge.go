// Package bridge owns the process-wide mailboxes between the simulation
// loop and the HTTP layer: the pending action batch queue, the latest
// observation slot, the chat-message ring, the advice inbox and the
// token-stream broadcaster. Lifetime equals process lifetime; nothing is
// persisted and a restart clears everything.
package bridge

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"citymayor.ai/internal/protocol"
)

// MaxMessageHistory caps the chat ring; the oldest entry is evicted
// first.
const MaxMessageHistory = 100

func newID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// Bridge is the explicit, constructible bridge context injected into
// the HTTP layer and the simulation loop.
type Bridge struct {
	mu sync.Mutex

	queue []protocol.Batch

	latestObs   *protocol.Observation
	latestObsAt time.Time

	messages []protocol.ChatMessage
	advice   []protocol.Advice

	stream *Broadcaster
}

func New() *Bridge {
	return &Bridge{stream: NewBroadcaster()}
}

// Stream returns the bridge's token-stream broadcaster.
func (b *Bridge) Stream() *Broadcaster { return b.stream }

// EnqueueBatch appends a whole batch and returns the new queue length.
func (b *Bridge) EnqueueBatch(batch protocol.Batch) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, batch)
	return len(b.queue)
}

// DequeueBatch pops the oldest batch. Batches are served strictly FIFO
// and atomically as whole units.
func (b *Bridge) DequeueBatch() (protocol.Batch, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return protocol.Batch{}, false
	}
	batch := b.queue[0]
	b.queue = b.queue[1:]
	return batch, true
}

func (b *Bridge) QueueLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// SetObservation overwrites the latest-observation slot.
func (b *Bridge) SetObservation(obs *protocol.Observation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latestObs = obs
	b.latestObsAt = time.Now()
}

// Observation returns the latest published observation, if any.
func (b *Bridge) Observation() (*protocol.Observation, time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latestObs == nil {
		return nil, time.Time{}, false
	}
	return b.latestObs, b.latestObsAt, true
}

// AddMessage appends a chat message, evicting the oldest past the ring
// cap.
func (b *Bridge) AddMessage(msgType, content string) protocol.ChatMessage {
	msg := protocol.ChatMessage{
		ID:      newID("msg"),
		At:      nowMillis(),
		Type:    msgType,
		Content: content,
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
	if len(b.messages) > MaxMessageHistory {
		b.messages = b.messages[1:]
	}
	return msg
}

// MessagesSince returns all messages strictly after the given id, or
// every retained message when the id is empty or unknown.
func (b *Bridge) MessagesSince(sinceID string) []protocol.ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := 0
	if sinceID != "" {
		for i, m := range b.messages {
			if m.ID == sinceID {
				start = i + 1
				break
			}
		}
	}
	out := make([]protocol.ChatMessage, len(b.messages)-start)
	copy(out, b.messages[start:])
	return out
}

// AddAdvice appends operator advice to the inbox.
func (b *Bridge) AddAdvice(content string) protocol.Advice {
	adv := protocol.Advice{
		ID:      newID("adv"),
		At:      nowMillis(),
		Content: content,
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advice = append(b.advice, adv)
	return adv
}

// TakeUnreadAdvice returns all unread advice and marks it read; a second
// call with no intervening write returns nothing.
func (b *Bridge) TakeUnreadAdvice() []protocol.Advice {
	b.mu.Lock()
	defer b.mu.Unlock()
	var unread []protocol.Advice
	for i := range b.advice {
		if !b.advice[i].Read {
			b.advice[i].Read = true
			unread = append(unread, b.advice[i])
		}
	}
	return unread
}
