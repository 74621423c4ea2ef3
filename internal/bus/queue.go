package bus

import "context"

// Queue is a buffered event funnel. All events are handled by the single
// goroutine running Run, which is what serializes native events against
// hub frames.
type Queue struct {
	events chan Event
}

// NewQueue creates a queue with a buffered channel.
func NewQueue() *Queue {
	return &Queue{events: make(chan Event, 100)}
}

// Publish enqueues one event.
func (q *Queue) Publish(e Event) {
	q.events <- e
}

// Size returns the number of pending events.
func (q *Queue) Size() int {
	return len(q.events)
}

// Run handles events in arrival order. Blocks until ctx is cancelled.
func (q *Queue) Run(ctx context.Context, handle func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-q.events:
			handle(e)
		}
	}
}
