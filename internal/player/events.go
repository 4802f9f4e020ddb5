package player

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

type EventType int

const (
	EventTrackAdd EventType = iota + 1
	EventTracksAdd
	EventTrackStart
	EventTrackEnd
	EventEmptyQueue
	EventDisconnect
	EventError
)

func (e EventType) String() string {
	switch e {
	case EventTrackAdd:
		return "track_add"
	case EventTracksAdd:
		return "tracks_add"
	case EventTrackStart:
		return "track_start"
	case EventTrackEnd:
		return "track_end"
	case EventEmptyQueue:
		return "empty_queue"
	case EventDisconnect:
		return "disconnect"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

type Event struct {
	Type   EventType
	Queue  *Queue
	Track  *Track
	Tracks []*Track
	Err    error
}

// dispatcher delivers events one at a time on its own goroutine. push never
// blocks, so it is safe to call with the queue lock held.
type dispatcher struct {
	handler func(Event)

	mu      sync.Mutex
	pending []Event
	closed  bool
	signal  chan struct{}
	done    chan struct{}
}

func newDispatcher(handler func(Event)) *dispatcher {
	d := &dispatcher{
		handler: handler,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *dispatcher) push(e Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.pending = append(d.pending, e)
	d.mu.Unlock()
	d.notify()
}

func (d *dispatcher) notify() {
	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// close stops accepting events; already queued ones are still delivered.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.notify()
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for range d.signal {
		for {
			d.mu.Lock()
			batch := d.pending
			d.pending = nil
			closed := d.closed
			d.mu.Unlock()

			if len(batch) == 0 {
				if closed {
					return
				}
				break
			}
			for _, e := range batch {
				d.deliver(e)
			}
		}
	}
}

func (d *dispatcher) deliver(e Event) {
	if d.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("player event handler panicked", "event", e.Type.String(), "panic", r, "stack", string(debug.Stack()))
		}
	}()
	d.handler(e)
}
