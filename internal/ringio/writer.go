// Package ringio provides a non-blocking io.Writer for code running on the
// host-event context. Writes land in a byte ring and a named goroutine drains
// them to the underlying writer, so a slow terminal never stalls the host.
package ringio

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"

	"github.com/srg/blegatt/internal/groutine"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("ring writer closed")

// Options configures a Writer.
type Options struct {
	Capacity  int           `default:"65536"`
	ChunkSize int           `default:"4096"`
	Linger    time.Duration `default:"1s"` // max time Close waits for the drain
}

// Stats is a snapshot of the writer counters.
type Stats struct {
	Queued   int
	Capacity int
	Written  uint64
	Dropped  uint64
}

// Writer buffers whole records in a ring and drains them in order.
type Writer struct {
	opts   Options
	out    io.Writer
	buf    *ringbuffer.RingBuffer
	logger *logrus.Logger

	mu     sync.Mutex // serializes producers so records are never interleaved
	wake   chan struct{}
	stop   chan struct{}
	done   <-chan struct{}
	closed atomic.Bool

	written atomic.Uint64
	dropped atomic.Uint64
	errMu   sync.Mutex
	err     error
}

// New starts a Writer draining into out until ctx ends or Close is called.
func New(ctx context.Context, out io.Writer, opts *Options, logger *logrus.Logger) *Writer {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	defaults.SetDefaults(&o)
	if logger == nil {
		logger = logrus.New()
	}

	w := &Writer{
		opts:   o,
		out:    out,
		buf:    ringbuffer.New(o.Capacity),
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}
	w.done = groutine.Go(ctx, "ring-output", w.drainLoop)
	return w
}

// Write queues p and returns immediately. A record that does not fit is
// dropped whole and reported as a short write.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed.Load() {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	w.mu.Lock()
	if w.buf.Free() < len(p) {
		w.mu.Unlock()
		w.dropped.Add(uint64(len(p)))
		w.logger.WithFields(logrus.Fields{
			"size":   len(p),
			"queued": w.buf.Length(),
		}).Warn("Output buffer full, record dropped")
		return 0, nil
	}
	n, err := w.buf.Write(p)
	w.mu.Unlock()

	if err != nil && !errors.Is(err, ringbuffer.ErrIsFull) && !errors.Is(err, ringbuffer.ErrTooMuchDataToWrite) {
		return n, err
	}
	if n < len(p) {
		w.dropped.Add(uint64(len(p) - n))
	}

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return n, nil
}

func (w *Writer) drainLoop(ctx context.Context) {
	defer w.flush()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-w.wake:
			w.flush()
		}
	}
}

func (w *Writer) flush() {
	chunk := make([]byte, w.opts.ChunkSize)
	for !w.buf.IsEmpty() {
		n, err := w.buf.TryRead(chunk)
		if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
			w.logger.WithError(err).Warn("Output buffer read failed")
			return
		}
		if n == 0 {
			return
		}
		if _, err := w.out.Write(chunk[:n]); err != nil {
			w.setErr(err)
			w.dropped.Add(uint64(n))
			continue
		}
		w.written.Add(uint64(n))
	}
}

// Close stops accepting writes, drains what is queued and returns the first
// error the underlying writer reported.
func (w *Writer) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(w.stop)

	select {
	case <-w.done:
	case <-time.After(w.opts.Linger):
		w.logger.WithField("queued", w.buf.Length()).Warn("Output drain did not finish before close")
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *Writer) setErr(err error) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) Stats() Stats {
	return Stats{
		Queued:   w.buf.Length(),
		Capacity: w.buf.Capacity(),
		Written:  w.written.Load(),
		Dropped:  w.dropped.Load(),
	}
}
