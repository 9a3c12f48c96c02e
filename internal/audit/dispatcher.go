package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatcher moves events from the auth flows to a sink on a dedicated
// goroutine, so no sign-in or refresh path ever waits on audit I/O. A
// nil Dispatcher is valid and records nothing; callers that disable
// auditing simply hold a nil pointer.
type Dispatcher struct {
	sink       Sink
	events     chan Event
	quit       chan struct{}
	worker     sync.WaitGroup
	dropped    atomic.Uint64
	dropIfFull bool
	stopped    atomic.Bool
	stopOnce   sync.Once
}

// NewDispatcher starts a dispatcher delivering to sink. buffer bounds
// how many events may be queued; dropIfFull selects shedding over
// blocking when the buffer is full.
func NewDispatcher(sink Sink, buffer int, dropIfFull bool) *Dispatcher {
	if sink == nil {
		sink = NoOpSink{}
	}
	if buffer <= 0 {
		buffer = 1
	}

	d := &Dispatcher{
		sink:       sink,
		events:     make(chan Event, buffer),
		quit:       make(chan struct{}),
		dropIfFull: dropIfFull,
	}
	d.worker.Add(1)
	go d.pump()
	return d
}

func (d *Dispatcher) pump() {
	defer d.worker.Done()

	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			// Everything accepted before shutdown still reaches the sink.
			for {
				select {
				case event := <-d.events:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit queues one event. The dispatcher stamps the timestamp so emit
// sites never fabricate one. With shedding enabled a full buffer counts
// a drop instead of stalling the auth flow; otherwise Emit blocks until
// the queue accepts the event or ctx ends.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.stopped.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		case <-d.quit:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Dropped reports how many events were shed under backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close stops intake and waits for queued events to reach the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.quit)
		d.worker.Wait()
	})
}
