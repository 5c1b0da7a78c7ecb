package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lousybook/lousybot-go/internal/mention"
)

// Event is one inbound conversational event. It is immutable once
// enqueued and owned exclusively by the queue until the worker dequeues
// it.
type Event struct {
	ID             uuid.UUID
	ConversationID string
	AuthorName     string
	AuthorTag      string
	AuthorID       string
	Content        string
	Scope          mention.Scope
	ReceivedAt     time.Time
}

// NewEvent stamps an inbound event with a correlation id and receive
// time.
func NewEvent(conversationID, authorName, authorTag, authorID, content string, scope mention.Scope) Event {
	return Event{
		ID:             uuid.New(),
		ConversationID: conversationID,
		AuthorName:     authorName,
		AuthorTag:      authorTag,
		AuthorID:       authorID,
		Content:        content,
		Scope:          scope,
		ReceivedAt:     time.Now(),
	}
}

// Queue is an unbounded FIFO of inbound events. Enqueue never blocks;
// entries are never reordered or dropped by the queue itself.
type Queue struct {
	mu     sync.Mutex
	items  []Event
	notify chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Enqueue appends an event. It never blocks the producer.
func (q *Queue) Enqueue(e Event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest event, blocking until one is
// available or the context is done.
func (q *Queue) Dequeue(ctx context.Context) (Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			return e, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
