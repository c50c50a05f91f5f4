package scraper

import (
	"context"
	"time"

	"github.com/google/uuid"

	"igdl/pkg/models"
)

// EventType classifies task events
type EventType string

const (
	EventLog  EventType = "log"
	EventItem EventType = "item"
	EventDone EventType = "done"
)

// Level is the display severity of an event
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Event is one progress update from a running task. EventItem carries a
// Result; EventDone carries the final Summary and error and is always the
// last event.
type Event struct {
	Type    EventType
	Level   Level
	Message string
	Result  *models.DownloadResult
	Summary *Summary
	Err     error
	Time    time.Time
}

// eventBuffer is how many unread events a task holds before it blocks
const eventBuffer = 256

// Task is a run executing in the background
type Task struct {
	ID string

	events chan Event
	done   chan struct{}
	cancel context.CancelFunc

	summary *Summary
	err     error
}

// Start runs req in a new goroutine and returns immediately
func (s *Scraper) Start(ctx context.Context, req Request) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		ID:     uuid.NewString(),
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	log := s.logger.WithField("task", t.ID)
	log.WithField("url", req.URL).Debug("Task started")

	go func() {
		defer close(t.done)
		defer close(t.events)
		defer cancel()

		t.summary, t.err = s.run(ctx, req, func(ev Event) { t.events <- ev })

		done := Event{Type: EventDone, Level: LevelSuccess, Summary: t.summary, Err: t.err, Time: time.Now()}
		switch {
		case t.err != nil:
			done.Level = LevelError
			done.Message = t.err.Error()
		case t.summary != nil && t.summary.Err() != nil:
			done.Level = LevelWarn
			done.Message = t.summary.Err().Error()
		default:
			done.Message = "Done"
		}
		t.events <- done

		if t.err != nil {
			log.WithError(t.err).Debug("Task failed")
		} else {
			log.Debug("Task finished")
		}
	}()

	return t
}

// Events streams progress and is closed after the EventDone event. The
// task blocks once the buffer is full, so callers must drain Events or
// call Wait.
func (t *Task) Events() <-chan Event {
	return t.events
}

// Done is closed once the task has finished
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel stops the task; downloads in flight finish or abort on their own
func (t *Task) Cancel() {
	t.cancel()
}

// Wait drains any unread events and returns the task outcome
func (t *Task) Wait() (*Summary, error) {
	for range t.events {
	}
	<-t.done
	return t.summary, t.err
}
