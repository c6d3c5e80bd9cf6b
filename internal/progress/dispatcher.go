package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultAckTimeout bounds how long a log line waits for the consumer.
const DefaultAckTimeout = 5 * time.Second

// Handler consumes events on the dispatcher's consumer goroutine, typically
// a UI loop that must not be called from the job's worker.
type Handler interface {
	Log(line string)
	Overall(current, total int)
	Item(done, expected int64)
}

type eventKind int

const (
	eventLog eventKind = iota
	eventOverall
	eventItem
)

type event struct {
	kind eventKind
	line string
	a, b int64
	ack  chan struct{}
}

// Dispatcher is a Sink that hands events to a Handler running on its own
// goroutine. Log lines block until the handler acknowledges them or the ack
// timeout expires; progress updates only wait for queue space. A handler
// panic, a timed-out dispatch, or dispatching after Close all flip the sink
// to cancelled, so an abandoned consumer can never wedge the job.
type Dispatcher struct {
	handler    Handler
	ackTimeout time.Duration

	events chan event
	done   chan struct{}
	exited chan struct{}
	once   sync.Once

	token  Token
	closed atomic.Bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithAckTimeout overrides DefaultAckTimeout.
func WithAckTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.ackTimeout = d
		}
	}
}

// NewDispatcher starts the consumer goroutine for handler.
func NewDispatcher(handler Handler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handler:    handler,
		ackTimeout: DefaultAckTimeout,
		events:     make(chan event, 64),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.exited)
	for {
		select {
		case ev := <-d.events:
			d.deliver(ev)
		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev event) {
	defer func() {
		if r := recover(); r != nil {
			d.token.Cancel()
		}
		if ev.ack != nil {
			close(ev.ack)
		}
	}()
	switch ev.kind {
	case eventLog:
		d.handler.Log(ev.line)
	case eventOverall:
		d.handler.Overall(int(ev.a), int(ev.b))
	case eventItem:
		d.handler.Item(ev.a, ev.b)
	}
}

// dispatch enqueues ev and, when it carries an ack channel, waits for it.
func (d *Dispatcher) dispatch(ev event) {
	if d.closed.Load() {
		d.token.Cancel()
		return
	}
	timer := time.NewTimer(d.ackTimeout)
	defer timer.Stop()

	select {
	case d.events <- ev:
	case <-d.done:
		d.token.Cancel()
		return
	case <-timer.C:
		d.token.Cancel()
		return
	}
	if ev.ack == nil {
		return
	}
	select {
	case <-ev.ack:
	case <-d.done:
		d.token.Cancel()
	case <-timer.C:
		d.token.Cancel()
	}
}

func (d *Dispatcher) Log(line string) {
	d.dispatch(event{kind: eventLog, line: line, ack: make(chan struct{})})
}

func (d *Dispatcher) Overall(current, total int) {
	d.dispatch(event{kind: eventOverall, a: int64(current), b: int64(total)})
}

func (d *Dispatcher) Item(done, expected int64) {
	d.dispatch(event{kind: eventItem, a: done, b: expected})
}

// Cancel requests cancellation, e.g. from a UI cancel button.
func (d *Dispatcher) Cancel() {
	d.token.Cancel()
}

func (d *Dispatcher) Cancelled() bool {
	return d.closed.Load() || d.token.Cancelled()
}

// Close stops the consumer goroutine. Events still queued are dropped and
// any later dispatch reports cancellation. Must not be called from the handler.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.done)
	})
	<-d.exited
}
