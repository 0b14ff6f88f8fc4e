package slides

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

const defaultWriteConcurrency = 4

// Pending tracks the persistence writes of one operation. The in-memory
// result is already visible when a Pending is handed out; callers choose
// whether to wait for the store.
type Pending struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu     sync.Mutex
	errs   []error
	failed []string
}

func completedPending() *Pending {
	pending := &Pending{done: make(chan struct{}), cancel: func() {}}
	close(pending.done)
	return pending
}

// startWrites issues every change concurrently, detached from the caller's
// cancellation. onFailure runs once per failed write; onDone runs after the
// last write and before Done is closed.
func startWrites(parent context.Context, store Store, changes []SlideChange, limit int, onFailure func(SlideChange, error), onDone func()) *Pending {
	if len(changes) == 0 {
		if onDone != nil {
			onDone()
		}
		return completedPending()
	}
	if limit <= 0 {
		limit = defaultWriteConcurrency
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	pending := &Pending{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(pending.done)
		defer cancel()
		if onDone != nil {
			defer onDone()
		}

		var group errgroup.Group
		group.SetLimit(limit)
		for _, change := range changes {
			group.Go(func() error {
				if err := store.UpdateSlide(ctx, change); err != nil {
					pending.record(change.ID, err)
					if onFailure != nil {
						onFailure(change, err)
					}
				}
				return nil
			})
		}
		_ = group.Wait()
	}()

	return pending
}

func (p *Pending) record(id string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
	p.failed = append(p.failed, id)
}

// Done is closed once every write has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the writes finish or ctx ends and returns the joined write errors.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel aborts writes that have not reached the store yet.
func (p *Pending) Cancel() {
	p.cancel()
}

// Err returns the joined write errors recorded so far.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}

// Failed lists the identifiers whose write failed.
func (p *Pending) Failed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.failed...)
}
