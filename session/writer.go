package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"notepilot/config"
)

const (
	writerQueueSize = 128
	writeTimeout    = 10 * time.Second
)

var errWriterClosed = errors.New("persistence writer is closed")

type writeJob struct {
	name string
	run  func(ctx context.Context) error
	done chan error
}

// writer applies persistence jobs one at a time in submission order.
// Fire-and-forget jobs only log their failures.
type writer struct {
	mu     sync.RWMutex
	closed bool
	jobs   chan writeJob
	group  errgroup.Group
}

func newWriter() *writer {
	w := &writer{jobs: make(chan writeJob, writerQueueSize)}
	w.group.Go(w.loop)
	return w
}

func (w *writer) loop() error {
	for job := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := job.run(ctx)
		cancel()

		if job.done != nil {
			job.done <- err
			continue
		}
		if err != nil {
			config.Log.Warnf("[Session] %s failed: %v", job.name, err)
		}
	}
	return nil
}

func (w *writer) submit(job writeJob) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.jobs <- job
	return nil
}

// enqueue schedules fn without waiting for it.
func (w *writer) enqueue(name string, fn func(ctx context.Context) error) {
	if err := w.submit(writeJob{name: name, run: fn}); err != nil {
		config.Log.Warnf("[Session] dropped %s: %v", name, err)
	}
}

// do schedules fn behind every pending job and waits for its result.
func (w *writer) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	if err := w.submit(writeJob{name: name, run: fn, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close drains the queue and stops the worker.
func (w *writer) close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	return w.group.Wait()
}
