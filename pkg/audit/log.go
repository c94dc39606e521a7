package audit

import (
	"context"
	"sync"
	"time"

	"github.com/habitatlabs/societycore/pkg/observability"
)

const (
	defaultBufferSize   = 256
	defaultRetryBackoff = 100 * time.Millisecond
)

// Log is the append-only audit sink wrapper used by the session manager.
//
// A failed write is retried once after a short backoff. If it still fails,
// the entry is queued in a bounded in-memory ring buffer and the Log enters
// degraded mode; buffered entries are flushed opportunistically before later
// appends and by the background flush loop. Callers performing critical
// transitions never fail solely because audit persistence failed; they
// inspect Degraded() instead.
type Log struct {
	sink    Sink
	logger  *observability.Logger
	metrics *observability.Metrics

	retryBackoff time.Duration
	bufferSize   int

	mu       sync.Mutex
	buffer   []Entry
	dropped  int
	degraded bool

	flushStop chan struct{}
	flushDone chan struct{}
}

// Option configures a Log
type Option func(*Log)

// WithBufferSize bounds the ring buffer (default 256 entries)
func WithBufferSize(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.bufferSize = n
		}
	}
}

// WithRetryBackoff sets the pause before the single retry
func WithRetryBackoff(d time.Duration) Option {
	return func(l *Log) {
		if d > 0 {
			l.retryBackoff = d
		}
	}
}

// WithMetrics records append results and buffer depth
func WithMetrics(m *observability.Metrics) Option {
	return func(l *Log) {
		l.metrics = m
	}
}

// NewLog creates an audit log writing to sink
func NewLog(sink Sink, logger *observability.Logger, opts ...Option) *Log {
	l := &Log{
		sink:         sink,
		logger:       logger,
		retryBackoff: defaultRetryBackoff,
		bufferSize:   defaultBufferSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append writes an entry to the sink. On persistent failure the entry is
// buffered, the degraded flag is set, and a PersistenceError is returned so
// the caller can surface degraded mode; the caller's state transition is
// expected to have committed already.
func (l *Log) Append(ctx context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Opportunistic flush of anything queued from earlier failures, so the
	// sink sees entries in the order they were produced.
	l.flushLocked(ctx)

	if len(l.buffer) > 0 {
		// Sink is still unhealthy; keep ordering by queueing behind the
		// buffered entries rather than writing out of order.
		l.pushLocked(entry)
		return &PersistenceError{Op: "append", Err: errSinkUnavailable}
	}

	if err := l.writeWithRetry(ctx, entry); err != nil {
		l.pushLocked(entry)
		l.logger.WithError(err).WithField("event_type", string(entry.EventType)).
			Warn("audit append failed, entry buffered")
		if l.metrics != nil {
			l.metrics.AuditAppendsTotal.WithLabelValues("buffered").Inc()
		}
		return &PersistenceError{Op: "append", Err: err}
	}

	if l.metrics != nil {
		l.metrics.AuditAppendsTotal.WithLabelValues("ok").Inc()
	}
	return nil
}

// writeWithRetry attempts the sink write, retrying once after a backoff
func (l *Log) writeWithRetry(ctx context.Context, entry Entry) error {
	err := l.sink.Write(ctx, entry)
	if err == nil {
		return nil
	}

	select {
	case <-time.After(l.retryBackoff):
	case <-ctx.Done():
		return err
	}

	return l.sink.Write(ctx, entry)
}

// pushLocked queues an entry in the ring buffer, dropping the oldest entry
// when full, and marks the log degraded.
func (l *Log) pushLocked(entry Entry) {
	if len(l.buffer) >= l.bufferSize {
		l.buffer = l.buffer[1:]
		l.dropped++
	}
	l.buffer = append(l.buffer, entry)
	l.degraded = true
	if l.metrics != nil {
		l.metrics.AuditBufferedTotal.Set(float64(len(l.buffer)))
	}
}

// flushLocked drains as much of the buffer as the sink will accept.
// Stops at the first failure to preserve ordering.
func (l *Log) flushLocked(ctx context.Context) {
	for len(l.buffer) > 0 {
		if err := l.sink.Write(ctx, l.buffer[0]); err != nil {
			return
		}
		l.buffer = l.buffer[1:]
	}
	if l.degraded {
		l.degraded = false
		l.logger.WithField("dropped", l.dropped).Info("audit log recovered from degraded mode")
	}
	if l.metrics != nil {
		l.metrics.AuditBufferedTotal.Set(0)
	}
}

// Flush attempts to drain the buffer immediately
func (l *Log) Flush(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.flushLocked(ctx)
}

// Degraded reports whether buffered entries are awaiting persistence
func (l *Log) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

// Buffered returns the number of queued entries
func (l *Log) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}

// Dropped returns how many entries were lost to ring buffer overflow
func (l *Log) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// StartFlushLoop flushes the buffer on an interval until Close is called
func (l *Log) StartFlushLoop(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	l.flushStop = make(chan struct{})
	l.flushDone = make(chan struct{})

	go func() {
		defer close(l.flushDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Flush(context.Background())
			case <-l.flushStop:
				return
			}
		}
	}()
}

// Close stops the flush loop and makes a final flush attempt
func (l *Log) Close() {
	if l.flushStop != nil {
		close(l.flushStop)
		<-l.flushDone
		l.flushStop = nil
	}
	l.Flush(context.Background())
}

var errSinkUnavailable = sinkUnavailableError{}

type sinkUnavailableError struct{}

func (sinkUnavailableError) Error() string {
	return "sink unavailable, entries queued behind earlier failures"
}
