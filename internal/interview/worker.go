package interview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/interview-backend/internal/metrics"
)

type command struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

type lane struct {
	queue []*command
	wake  chan struct{}
}

// sessionWorkers runs commands one at a time per session, in submission
// order. Each session gets its own goroutine, started on demand and
// stopped after idle passes with nothing queued.
type sessionWorkers struct {
	idle time.Duration
	log  zerolog.Logger

	mu    sync.Mutex
	lanes map[uuid.UUID]*lane
	wg    sync.WaitGroup
}

func newSessionWorkers(idle time.Duration, log zerolog.Logger) *sessionWorkers {
	return &sessionWorkers{
		idle:  idle,
		log:   log,
		lanes: make(map[uuid.UUID]*lane),
	}
}

// Do queues fn behind the session's earlier commands and waits for it.
// fn runs detached from ctx cancellation, so a caller that gives up does
// not abort work that has already been accepted.
func (w *sessionWorkers) Do(ctx context.Context, sessionID uuid.UUID, fn func(context.Context) error) error {
	cmd := &command{ctx: ctx, fn: fn, done: make(chan error, 1)}

	w.mu.Lock()
	ln, ok := w.lanes[sessionID]
	if !ok {
		ln = &lane{wake: make(chan struct{}, 1)}
		w.lanes[sessionID] = ln
		w.wg.Add(1)
		go w.run(sessionID, ln)
	}
	ln.queue = append(ln.queue, cmd)
	w.mu.Unlock()

	select {
	case ln.wake <- struct{}{}:
	default:
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the number of running session goroutines.
func (w *sessionWorkers) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.lanes)
}

// Wait blocks until every session goroutine has drained and exited, or ctx ends.
func (w *sessionWorkers) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *sessionWorkers) run(sessionID uuid.UUID, ln *lane) {
	defer w.wg.Done()
	metrics.WorkerStarted()
	defer metrics.WorkerStopped()

	timer := time.NewTimer(w.idle)
	defer timer.Stop()

	for {
		w.mu.Lock()
		if len(ln.queue) > 0 {
			cmd := ln.queue[0]
			ln.queue[0] = nil
			ln.queue = ln.queue[1:]
			w.mu.Unlock()

			cmd.done <- w.execute(sessionID, cmd)
			continue
		}
		w.mu.Unlock()

		timer.Reset(w.idle)
		select {
		case <-ln.wake:
		case <-timer.C:
			w.mu.Lock()
			if len(ln.queue) == 0 {
				delete(w.lanes, sessionID)
				w.mu.Unlock()
				w.log.Debug().Str("session_id", sessionID.String()).Msg("Session worker idle, stopping")
				return
			}
			w.mu.Unlock()
		}
	}
}

func (w *sessionWorkers) execute(sessionID uuid.UUID, cmd *command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Str("session_id", sessionID.String()).Msg("Session command panicked")
			err = fmt.Errorf("session command panicked: %v", r)
		}
	}()
	return cmd.fn(context.WithoutCancel(cmd.ctx))
}
