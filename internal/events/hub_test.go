package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEventWireFormat(t *testing.T) {
	payload, err := json.Marshal(Event{Step: "transcribing", Progress: 33, Message: "chunk 1 of 3", Status: StatusProcessing})
	if err != nil {
		t.Fatal(err)
	}
	line := string(payload)
	if !strings.Contains(line, `"progress":33`) {
		t.Fatalf("progress not integral: %s", line)
	}
	if !strings.Contains(line, `"status":"processing"`) {
		t.Fatalf("status vocabulary: %s", line)
	}

	for constant, want := range map[string]string{
		StatusIdle:       "idle",
		StatusProcessing: "processing",
		StatusCompleted:  "completed",
		StatusError:      "error",
		StatusCancelled:  "cancelled",
	} {
		if constant != want {
			t.Fatalf("status constant %q, want %q", constant, want)
		}
	}
}

func TestSubscribeReceivesReplayAndLive(t *testing.T) {
	hub := NewHub()
	hub.Publish(Event{JobID: 1, Step: "validating", Status: StatusProcessing, Message: "checking input"})

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	first := <-ch
	if first.Step != "validating" {
		t.Fatalf("replay event = %+v", first)
	}

	hub.Publish(Event{JobID: 1, Step: "extracting", Status: StatusProcessing, Progress: 10})
	second := <-ch
	if second.Step != "extracting" || second.Progress != 10 {
		t.Fatalf("live event = %+v", second)
	}
}

func TestTerminalEventClosesStream(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(7)
	defer cancel()

	hub.Publish(Event{JobID: 7, Step: "job", Status: StatusCompleted, Progress: 100})

	event, ok := <-ch
	if !ok || event.Status != StatusCompleted {
		t.Fatalf("event = %+v ok = %v", event, ok)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after terminal event")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestSubscribeAfterTerminalGetsClosedChannel(t *testing.T) {
	hub := NewHub()
	hub.Publish(Event{JobID: 3, Step: "job", Status: StatusError, Message: "boom"})

	ch, cancel := hub.Subscribe(3)
	defer cancel()
	// The stream is gone, so a late subscriber sees an immediately closed
	// channel with no replay.
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel for finished job")
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(9)
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after cancel")
	}
	// Publishing after cancel must not panic.
	hub.Publish(Event{JobID: 9, Step: "validating", Status: StatusProcessing})
}

func TestEventsAreIndependentPerJob(t *testing.T) {
	hub := NewHub()
	chA, cancelA := hub.Subscribe(1)
	defer cancelA()
	chB, cancelB := hub.Subscribe(2)
	defer cancelB()

	hub.Publish(Event{JobID: 2, Step: "translating", Status: StatusProcessing})

	select {
	case event := <-chB:
		if event.Step != "translating" {
			t.Fatalf("event = %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber B got nothing")
	}
	select {
	case event := <-chA:
		t.Fatalf("subscriber A should see nothing, got %+v", event)
	default:
	}
}
