package sink

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/airbandcore/airbandcore/internal/errfeed"
	"github.com/airbandcore/airbandcore/internal/errs"
	"github.com/airbandcore/airbandcore/internal/ring"
)

// Writer is the variant-specific half of a Sink: open the destination,
// write one frame (blocking I/O allowed), flush, close.
type Writer interface {
	Open() error
	Write(fr Frame) error
	Flush() error
	Close() error
}

const (
	defaultQueueCapacity = 8
	maxConsecutiveRetries = 10
	backoffBase           = 500 * time.Millisecond
	backoffCap            = 30 * time.Second
)

// Base runs a Writer on its own goroutine, draining a bounded queue so
// Accept is always non-blocking (spec.md 4.4's "never blocks" contract)
// and retrying with backoff on transient failures. After
// maxConsecutiveRetries consecutive failures the sink stays in status
// Error and keeps trying each newer frame without backoff sleeps until a
// write succeeds; the owning channel is never stopped (spec.md 4.4).
type Base struct {
	component string
	writer    Writer
	errs      *errfeed.Feed

	queue   *ring.Buffer[Frame]
	dropped atomic.Uint64

	mu              sync.Mutex
	state           State
	reason          string
	consecutiveFail int

	wg     sync.WaitGroup
	closed atomic.Bool
}

// NewBase wraps writer with the common queue/retry/status machinery.
// errFeed may be nil.
func NewBase(component string, writer Writer, queueCapacity int, errFeed *errfeed.Feed) *Base {
	if queueCapacity <= 0 {
		queueCapacity = defaultQueueCapacity
	}
	return &Base{
		component: component,
		writer:    writer,
		errs:      errFeed,
		queue:     ring.New[Frame](queueCapacity),
		state:     StateIdle,
	}
}

func (b *Base) Open() error {
	if err := b.writer.Open(); err != nil {
		return errs.Wrap(errs.KindSinkFatal, b.component, "open", err)
	}
	b.setState(StateOK, "")
	b.wg.Add(1)
	go b.run()
	return nil
}

// Accept queues fr, dropping the oldest queued frame and incrementing the
// drop counter if the queue is already full.
func (b *Base) Accept(fr Frame) bool {
	if b.closed.Load() {
		return false
	}
	if evicted := b.queue.Push(fr); evicted {
		b.dropped.Add(1)
		return false
	}
	return true
}

func (b *Base) Flush() error {
	return b.writer.Flush()
}

func (b *Base) Close() error {
	b.closed.Store(true)
	b.queue.Close()
	b.wg.Wait()
	return b.writer.Close()
}

func (b *Base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		State:           b.state,
		Reason:          b.reason,
		Dropped:         b.dropped.Load(),
		ConsecutiveFail: b.consecutiveFail,
	}
}

func (b *Base) setState(s State, reason string) {
	b.mu.Lock()
	b.state = s
	b.reason = reason
	b.mu.Unlock()
}

func (b *Base) run() {
	defer b.wg.Done()
	var backoff time.Duration

	for {
		fr, ok := b.queue.Pop()
		if !ok {
			return
		}

		err := b.writer.Write(fr)
		if err == nil {
			b.mu.Lock()
			b.consecutiveFail = 0
			b.mu.Unlock()
			b.setState(StateOK, "")
			backoff = 0
			continue
		}

		b.mu.Lock()
		b.consecutiveFail++
		fail := b.consecutiveFail
		b.mu.Unlock()

		wrapped := errs.Wrap(errs.KindSinkTransient, b.component, "write", err)
		if b.errs != nil {
			b.errs.Report(wrapped)
		}

		if fail >= maxConsecutiveRetries {
			b.setState(StateError, wrapped.Error())
			// Persistent failure leaves the sink in status Error, but the
			// channel (and this goroutine) keeps writing newer frames, with
			// no backoff sleep, in case the destination recovers (spec.md 4.4).
			continue
		}

		b.setState(StateError, wrapped.Error())
		if backoff == 0 {
			backoff = backoffBase
		} else {
			backoff *= 2
			if backoff > backoffCap {
				backoff = backoffCap
			}
		}
		time.Sleep(backoff)
	}
}
