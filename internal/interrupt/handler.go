// Package interrupt turns SIGINT and SIGTERM into context cancellation.
//
// The first signal cancels the context so the running build can unwind and
// remove its session directory. A second signal only reminds the user that
// cleanup is in progress. A third one exits immediately.
package interrupt

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// ExitInterrupt is the exit code for interrupt (130 = 128 + SIGINT).
const ExitInterrupt = 130

// forceQuitAfter is the number of signals that bypasses cleanup.
const forceQuitAfter = 3

const (
	cancelMessage = "\nInterrupted, removing temporary files..."
	waitMessage   = "Still cleaning up. Press Ctrl+C again to quit now."
	abortMessage  = "\nAborted."
)

// Handler tracks interrupt signals for one command run.
type Handler struct {
	mu         sync.Mutex
	signals    int
	stopped    bool
	cancelFunc context.CancelFunc
	done       chan struct{}

	exitFunc func(int)
	stderr   io.Writer
}

// Options holds injectable dependencies for testing.
type Options struct {
	SigCh    <-chan os.Signal
	ExitFunc func(int)
	// Stderr must be safe for concurrent writes.
	Stderr io.Writer
}

// NewHandler creates a handler that listens for SIGINT/SIGTERM.
// The returned context is canceled on the first signal.
func NewHandler(parent context.Context) (*Handler, context.Context) {
	sigCh := make(chan os.Signal, forceQuitAfter)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return NewHandlerWithOptions(parent, Options{SigCh: sigCh})
}

// NewHandlerWithOptions creates a handler with injectable dependencies.
func NewHandlerWithOptions(parent context.Context, opts Options) (*Handler, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	h := &Handler{
		cancelFunc: cancel,
		done:       make(chan struct{}),
		exitFunc:   opts.ExitFunc,
		stderr:     opts.Stderr,
	}
	if h.exitFunc == nil {
		h.exitFunc = os.Exit
	}
	if h.stderr == nil {
		h.stderr = os.Stderr
	}

	if opts.SigCh != nil {
		go h.listen(opts.SigCh)
	}
	return h, ctx
}

func (h *Handler) listen(sigCh <-chan os.Signal) {
	for {
		select {
		case <-h.done:
			return
		case _, ok := <-sigCh:
			if !ok {
				return
			}
			if !h.handle() {
				return
			}
		}
	}
}

// handle records one signal. It returns false once the listener should stop.
func (h *Handler) handle() bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return false
	}
	h.signals++
	n := h.signals
	h.mu.Unlock()

	switch {
	case n == 1:
		fmt.Fprintln(h.stderr, cancelMessage)
		h.cancelFunc()
	case n < forceQuitAfter:
		fmt.Fprintln(h.stderr, waitMessage)
	default:
		fmt.Fprintln(h.stderr, abortMessage)
		h.exitFunc(ExitInterrupt)
		return false
	}
	return true
}

// WasInterrupted returns true if at least one signal was received.
func (h *Handler) WasInterrupted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.signals > 0
}

// Stop releases the signal subscription. Safe to call more than once.
func (h *Handler) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	close(h.done)
	h.cancelFunc()
}
