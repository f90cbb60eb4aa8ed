package events

import (
	"context"
	"sync"
	"sync/atomic"
)

// DispatchConfig controls sink fan-out buffering.
type DispatchConfig struct {
	BufferSize int
	DropIfFull bool
}

// Dispatcher relays appended events to external sinks without blocking the
// request path. The synchronous log write has already happened by the time
// an event reaches the dispatcher; losing a fan-out copy degrades external
// feeds only.
type Dispatcher struct {
	cfg       DispatchConfig
	sinks     []Sink
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the relay goroutine. Returns nil when no sinks are
// configured; a nil Dispatcher is safe to use.
func NewDispatcher(cfg DispatchConfig, sinks ...Sink) *Dispatcher {
	live := sinks[:0:0]
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	d := &Dispatcher{
		cfg:   cfg,
		sinks: live,
		ch:    make(chan Event, cfg.BufferSize),
		done:  make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.fanOut(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.fanOut(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) fanOut(event Event) {
	for _, sink := range d.sinks {
		sink.Emit(context.Background(), event)
	}
}

// Emit queues an event for fan-out. With DropIfFull the call never blocks
// and full buffers increment the drop counter; otherwise it blocks until
// buffered, canceled, or closed.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close drains buffered events into the sinks and stops the relay.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
