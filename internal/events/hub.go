package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event statuses. The wire vocabulary is idle, processing, completed, and
// error; cancelled extends it so clients can tell a cancelled job apart from
// a failed one.
const (
	StatusIdle       = "idle"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
	StatusCancelled  = "cancelled"
)

// Event is one progress update for a job. Progress is a whole percentage,
// 0 through 100. Result is only populated on the final event of a
// successful job.
type Event struct {
	Step     string          `json:"step"`
	Progress int             `json:"progress"`
	Message  string          `json:"message"`
	Status   string          `json:"status"`
	Result   json.RawMessage `json:"result,omitempty"`

	JobID     int64     `json:"-"`
	Timestamp time.Time `json:"-"`
}

// Terminal reports whether the event ends the stream.
func (e Event) Terminal() bool {
	switch e.Status {
	case StatusCompleted, StatusError, StatusCancelled:
		return e.Step == "job"
	}
	return false
}

// Publisher is the stage-facing side of the hub.
type Publisher interface {
	Publish(Event)
}

const (
	replayLimit      = 256
	subscriberBuffer = 64
)

type subscriber struct {
	ch chan Event
}

type jobStream struct {
	replay      []Event
	subscribers []*subscriber
	closed      bool
}

// Hub fans events out to per-job subscribers.
type Hub struct {
	mu      sync.Mutex
	streams map[int64]*jobStream
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[int64]*jobStream)}
}

// Publish delivers an event to all subscribers of its job. Slow subscribers
// lose events rather than blocking the pipeline. A terminal event closes the
// stream and releases its replay buffer once delivered.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.Lock()
	stream := h.streams[event.JobID]
	if stream == nil {
		stream = &jobStream{}
		h.streams[event.JobID] = stream
	}
	if stream.closed {
		h.mu.Unlock()
		return
	}
	if len(stream.replay) < replayLimit {
		stream.replay = append(stream.replay, event)
	}
	subscribers := make([]*subscriber, len(stream.subscribers))
	copy(subscribers, stream.subscribers)
	terminal := event.Terminal()
	if terminal {
		// Keep a closed tombstone so a subscriber arriving after the
		// terminal event gets an immediately closed channel instead of a
		// stream that never ends. The replay buffer is released; finished
		// jobs answer from the store, not the hub.
		stream.closed = true
		stream.subscribers = nil
		stream.replay = nil
	}
	h.mu.Unlock()

	for _, sub := range subscribers {
		select {
		case sub.ch <- event:
		default:
		}
	}
	if terminal {
		for _, sub := range subscribers {
			close(sub.ch)
		}
	}
}

// Subscribe returns a channel of events for a job, beginning with any events
// already published. The channel closes after a terminal event or when the
// returned cancel function runs.
func (h *Hub) Subscribe(jobID int64) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	stream := h.streams[jobID]
	if stream == nil {
		stream = &jobStream{}
		h.streams[jobID] = stream
	}
	replay := make([]Event, len(stream.replay))
	copy(replay, stream.replay)
	closed := stream.closed
	if !closed {
		stream.subscribers = append(stream.subscribers, sub)
	}
	h.mu.Unlock()

	for _, event := range replay {
		select {
		case sub.ch <- event:
		default:
		}
	}
	if closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		stream, ok := h.streams[jobID]
		if !ok {
			return
		}
		for i, existing := range stream.subscribers {
			if existing == sub {
				stream.subscribers = append(stream.subscribers[:i], stream.subscribers[i+1:]...)
				close(sub.ch)
				return
			}
		}
	}
	return sub.ch, cancel
}
