package sync

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cschleiden/go-dialogflow/internal/workflowerrors"
)

const DeadlockDetection = 40 * time.Second

var (
	ErrCoroutineAlreadyFinished = errors.New("coroutine already finished")
	ErrCoroutineDeadlocked      = errors.New("coroutine did not yield in time")
)

// Coroutine runs a function on its own goroutine, but only ever lets either the caller or the
// function make progress. The function hands control back by calling Yield.
type Coroutine interface {
	// Execute continues execution of a blocked coroutine and waits until
	// it is finished or blocked again
	Execute() error

	// Yield yields execution and stops coroutine execution. Must only be called from within the coroutine.
	Yield()

	// Exit prevents a _blocked_ Coroutine from continuing. Deferred functions of the coroutine are run.
	Exit()

	Blocked() bool
	Finished() bool

	// Error returns the error returned by the coroutine function, or a *workflowerrors.PanicError if it panicked
	Error() error
}

type coState struct {
	blocking   chan bool    // coroutine is going to be blocked
	unblock    chan bool    // channel to unblock block coroutine
	blocked    atomic.Value // coroutine is currently blocked
	finished   atomic.Value // coroutine finished executing
	shouldExit atomic.Value // coroutine should exit

	err error

	deadlockDetection time.Duration
}

func NewCoroutine(fn func(co Coroutine) error) Coroutine {
	return newCoroutine(DeadlockDetection, fn)
}

func newCoroutine(deadlockDetection time.Duration, fn func(co Coroutine) error) Coroutine {
	s := newState(deadlockDetection)

	go func() {
		defer s.finish() // Ensure we always mark the coroutine as finished
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok && errors.Is(err, ErrCoroutineAlreadyFinished) {
					// Ignore this specific error
					return
				}

				s.err = workflowerrors.NewPanicError(r)
			}
		}()

		// yield before the first execution
		s.yield(false)

		s.err = fn(s)
	}()

	return s
}

func newState(deadlockDetection time.Duration) *coState {
	c := &coState{
		blocking:          make(chan bool, 1),
		unblock:           make(chan bool),
		deadlockDetection: deadlockDetection,
	}

	// Start out as blocked
	c.blocked.Store(true)

	return c
}

func (s *coState) finish() {
	s.finished.Store(true)
	s.blocking <- true
}

func (s *coState) Finished() bool {
	v, ok := s.finished.Load().(bool)
	return ok && v
}

func (s *coState) Blocked() bool {
	v, ok := s.blocked.Load().(bool)
	return ok && v
}

func (s *coState) Yield() {
	s.yield(true)
}

func (s *coState) yield(markBlocking bool) {
	if markBlocking {
		if s.shouldExit.Load() != nil {
			panic(ErrCoroutineAlreadyFinished)
		}

		s.blocked.Store(true)

		s.blocking <- true
	}

	// Wait for the next Execute() call
	<-s.unblock

	// Once we're here, another Execute() call has been made. s.blocking is empty

	if s.shouldExit.Load() != nil {
		// Goexit runs all deferred functions, which includes calling finish() in the main
		// execution function. That marks the coroutine as finished and blocking.
		runtime.Goexit()
	}

	s.blocked.Store(false)
}

func (s *coState) Execute() error {
	if s.Finished() {
		return nil
	}

	t := time.NewTimer(s.deadlockDetection)
	defer t.Stop()

	s.unblock <- true

	runtime.Gosched()

	// Run until blocked (which is also true when finished)
	select {
	case <-s.blocking:
		return nil
	case <-t.C:
		return fmt.Errorf("%w after %v", ErrCoroutineDeadlocked, s.deadlockDetection)
	}
}

func (s *coState) Exit() {
	if s.Finished() {
		return
	}

	s.shouldExit.Store(true)

	if !s.Blocked() {
		// Still running after a deadlock, the coroutine exits on its next yield
		return
	}

	_ = s.Execute()
}

func (s *coState) Error() error {
	return s.err
}
