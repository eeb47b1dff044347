package hostsim

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"

	"github.com/srg/blegatt/internal/groutine"
)

const (
	queueStateNotRunning uint32 = iota
	queueStateRunning
	queueStateStopping

	// MaxQueueSize guards against accidental misconfiguration.
	MaxQueueSize uint32 = 1024 * 1024
)

// QueueMetrics counts what went through the host-event queue.
type QueueMetrics struct {
	Processed   int64
	Overwritten int64
}

// eventQueue delivers host completions and events in order from a single
// named goroutine, the host-event context.
type eventQueue struct {
	buffer mpmc.RichOverlappedRingBuffer[func()]
	wake   chan struct{}
	stop   chan struct{}
	done   <-chan struct{}
	state  uint32
	owner  *groutine.Owner
	logger *logrus.Logger

	processed   atomic.Int64
	overwritten atomic.Int64
}

func newEventQueue(size uint32, logger *logrus.Logger) (*eventQueue, error) {
	if size == 0 {
		return nil, fmt.Errorf("queue size must be > 0")
	}
	if size > MaxQueueSize {
		return nil, fmt.Errorf("queue size %d exceeds maximum %d", size, MaxQueueSize)
	}
	return &eventQueue{
		buffer: mpmc.NewOverlappedRingBuffer[func()](size),
		wake:   make(chan struct{}, 1),
		owner:  groutine.NewOwner("host-event"),
		logger: logger,
	}, nil
}

// Post appends fn. Work posted before Start runs once the queue starts.
func (q *eventQueue) Post(fn func()) {
	overwrites, err := q.buffer.EnqueueM(fn)
	if err != nil {
		q.logger.WithError(err).Error("Host event queue enqueue failed")
		return
	}
	if overwrites > 0 {
		q.overwritten.Add(int64(overwrites))
		q.logger.WithField("overwritten", overwrites).Warn("Host event queue overflow, oldest events dropped")
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Start launches the host-event goroutine.
func (q *eventQueue) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapUint32(&q.state, queueStateNotRunning, queueStateRunning) {
		return fmt.Errorf("host event queue is not stopped (state %d)", atomic.LoadUint32(&q.state))
	}

	q.stop = make(chan struct{})
	started := make(chan struct{}, 1)

	q.done = q.owner.Run(ctx, func(ctx context.Context) {
		started <- struct{}{}
		defer atomic.StoreUint32(&q.state, queueStateNotRunning)

		for {
			q.drain()
			select {
			case <-q.stop:
				return
			case <-ctx.Done():
				return
			case <-q.wake:
			}
		}
	})

	select {
	case <-started:
		return nil
	case <-time.After(time.Second):
		close(q.stop)
		<-q.done
		return fmt.Errorf("host event queue failed to start within 1s")
	}
}

func (q *eventQueue) drain() {
	for !q.buffer.IsEmpty() {
		fn, err := q.buffer.Dequeue()
		if err != nil {
			return
		}
		fn()
		q.processed.Add(1)
	}
}

// Stop ends the host-event goroutine. Pending work stays queued.
func (q *eventQueue) Stop() error {
	if !atomic.CompareAndSwapUint32(&q.state, queueStateRunning, queueStateStopping) {
		return nil
	}
	close(q.stop)
	select {
	case <-q.done:
		return nil
	case <-time.After(time.Second):
		return fmt.Errorf("host event queue did not stop within 1s")
	}
}

// Flush blocks until everything posted before the call has run. It must not
// be called from the host-event goroutine.
func (q *eventQueue) Flush() {
	done := make(chan struct{})
	q.Post(func() { close(done) })
	<-done
}

// OnEventContext reports whether the caller runs on the host-event goroutine.
func (q *eventQueue) OnEventContext() bool {
	return q.owner.Current()
}

func (q *eventQueue) Metrics() QueueMetrics {
	return QueueMetrics{Processed: q.processed.Load(), Overwritten: q.overwritten.Load()}
}
