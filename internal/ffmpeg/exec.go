package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// RunGraceful executes FFmpeg and, when ctx is canceled, sends 'q' on stdin
// so the container trailer is still written, killing the process after
// timeout. The caller must check ctx.Err() to tell a finished run from an
// interrupted one, because an interrupted FFmpeg exits cleanly.
func RunGraceful(ctx context.Context, ffmpegPath string, args []string, timeout time.Duration) error {
	cmd := exec.Command(ffmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("ffmpeg: %w\nOutput: %s", err, stderr.String())
		}
		return nil

	case <-ctx.Done():
		_, _ = io.WriteString(stdin, "q")
		_ = stdin.Close()

		select {
		case <-done:
			// Non-zero exit after 'q' is normal.
			return nil
		case <-time.After(timeout):
			_ = cmd.Process.Kill()
			<-done
			return fmt.Errorf("%w: killed after %v", ErrTimeout, timeout)
		}
	}
}

// ---------------------------------------------------------------------------
// Executor - testable FFmpeg execution with dependency injection
// ---------------------------------------------------------------------------

// runFn runs a command and returns the captured stream.
type runFn func(ctx context.Context, path string, args []string) (string, error)

// Executor runs FFmpeg commands with injectable dependencies.
type Executor struct {
	runStderr runFn
	runStdout runFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRunOutput replaces the stderr-capturing runner (for testing).
func WithRunOutput(fn runFn) ExecutorOption {
	return func(e *Executor) { e.runStderr = fn }
}

// WithRunStdout replaces the stdout-capturing runner (for testing).
func WithRunStdout(fn runFn) ExecutorOption {
	return func(e *Executor) { e.runStdout = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		runStderr: captureStderr,
		runStdout: captureStdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOutput executes FFmpeg and returns its stderr, where probe information
// such as the "Duration:" line is printed. The output is returned even when
// the command fails: `ffmpeg -i file` without an output exits 1 by design.
func (e *Executor) RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return e.runStderr(ctx, ffmpegPath, args)
}

// RunStdout executes FFmpeg and returns its stdout (used for -version).
func (e *Executor) RunStdout(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return e.runStdout(ctx, ffmpegPath, args)
}

func captureStderr(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

func captureStdout(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	err := cmd.Run()
	return stdout.String(), err
}
