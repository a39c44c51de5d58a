package toon

import (
	"context"
	"sync"
	"time"
)

// Sink persists records. Implementations may be slow; the Recorder calls
// them from its own goroutine, never from the decision path.
type Sink interface {
	Persist(ctx context.Context, op Operation) error
}

// RecorderConfig tunes the async recorder.
type RecorderConfig struct {
	// QueueSize bounds the in-flight records. 0 => 1024.
	QueueSize int

	// PersistTimeout bounds each sink call. 0 => 5s.
	PersistTimeout time.Duration

	// OnDrop is called with the number of records dropped because the queue
	// was full. May be nil.
	OnDrop func(n int)

	// OnPersistError is called when a sink fails. The caller's result was
	// already returned; this is observability only. May be nil.
	OnPersistError func(err error)
}

// Recorder decouples record persistence from the decision path: Record never
// blocks and never fails. A single writer goroutine fans records out to the
// sinks and the aggregator; a full queue drops the record and reports it via
// OnDrop.
type Recorder struct {
	q       chan Operation
	sinks   []Sink
	agg     *Aggregator
	timeout time.Duration
	onDrop  func(int)
	onErr   func(error)

	wg   sync.WaitGroup
	once sync.Once
}

// NewRecorder starts the writer goroutine. agg may be nil; sinks may be
// empty (records then only feed the aggregator).
func NewRecorder(cfg RecorderConfig, agg *Aggregator, sinks ...Sink) *Recorder {
	qlen := cfg.QueueSize
	if qlen <= 0 {
		qlen = 1024
	}
	timeout := cfg.PersistTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	r := &Recorder{
		q:       make(chan Operation, qlen),
		sinks:   sinks,
		agg:     agg,
		timeout: timeout,
		onDrop:  cfg.OnDrop,
		onErr:   cfg.OnPersistError,
	}
	r.wg.Add(1)
	go r.writeLoop()
	return r
}

// Record enqueues op. Non-blocking: a full queue drops the record.
func (r *Recorder) Record(op Operation) {
	select {
	case r.q <- op:
	default:
		if r.onDrop != nil {
			r.onDrop(1)
		}
	}
}

// Close drains the queue, waits for the writer, and returns. Safe to call
// more than once; Record after Close panics (caller owns shutdown order).
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.q)
		r.wg.Wait()
	})
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()
	for op := range r.q {
		if r.agg != nil {
			r.agg.Observe(op)
		}
		for _, s := range r.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			err := s.Persist(ctx, op)
			cancel()
			if err != nil && r.onErr != nil {
				r.onErr(err)
			}
		}
	}
}
