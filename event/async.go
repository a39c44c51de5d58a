package event

import (
	"context"
	"sync"
	"time"
)

// Async decouples event delivery from the caller: Publish enqueues and
// returns immediately; worker goroutines drive the wrapped publisher. A full
// queue drops the event (delivery is best-effort by contract).
type Async struct {
	inner   Publisher
	q       chan Event
	timeout time.Duration
	onDrop  func(n int)

	wg   sync.WaitGroup
	once sync.Once
}

var _ Publisher = (*Async)(nil)

// NewAsync wraps inner with workers goroutines and a queue of qlen events.
// onDrop may be nil.
func NewAsync(inner Publisher, workers, qlen int, onDrop func(int)) *Async {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	a := &Async{
		inner:   inner,
		q:       make(chan Event, qlen),
		timeout: 5 * time.Second,
		onDrop:  onDrop,
	}
	a.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go a.run()
	}
	return a
}

// Publish enqueues ev. Never blocks, never fails.
func (a *Async) Publish(_ context.Context, ev Event) error {
	select {
	case a.q <- ev:
	default:
		if a.onDrop != nil {
			a.onDrop(1)
		}
	}
	return nil
}

// Close drains the queue, stops the workers, and closes the wrapped
// publisher. Safe to call more than once.
func (a *Async) Close(ctx context.Context) error {
	var err error
	a.once.Do(func() {
		close(a.q)
		a.wg.Wait()
		err = a.inner.Close(ctx)
	})
	return err
}

func (a *Async) run() {
	defer a.wg.Done()
	for ev := range a.q {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		_ = a.inner.Publish(ctx, ev) // best-effort
		cancel()
	}
}
