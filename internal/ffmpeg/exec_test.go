package ffmpeg

// Notes:
// - RunGraceful is exercised with real short-lived processes (sh, cat, sleep).
// - Executor tests inject the runners, no binary required.

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Executor - injected runners
// ---------------------------------------------------------------------------

func TestExecutor_streams(t *testing.T) {
	t.Parallel()

	e := NewExecutor(
		WithRunOutput(func(context.Context, string, []string) (string, error) {
			return "Duration: 00:00:05.00", errors.New("exit status 1")
		}),
		WithRunStdout(func(context.Context, string, []string) (string, error) {
			return "ffmpeg version 6.1.1", nil
		}),
	)

	stderr, err := e.RunOutput(context.Background(), "ffmpeg", []string{"-i", "x.mp3"})
	if err == nil || stderr != "Duration: 00:00:05.00" {
		t.Errorf("RunOutput() = %q, %v; want output and error", stderr, err)
	}

	stdout, err := e.RunStdout(context.Background(), "ffmpeg", []string{"-version"})
	if err != nil || stdout != "ffmpeg version 6.1.1" {
		t.Errorf("RunStdout() = %q, %v", stdout, err)
	}
}

func TestCaptureStdout_realCommand(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	out, err := captureStdout(context.Background(), "sh", []string{"-c", "echo hello; echo noise >&2"})
	if err != nil {
		t.Fatalf("captureStdout() error: %v", err)
	}
	if out != "hello\n" {
		t.Errorf("captureStdout() = %q, want %q", out, "hello\n")
	}
}

func TestCaptureStderr_keepsOutputOnFailure(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	out, err := captureStderr(context.Background(), "sh", []string{"-c", "echo probe >&2; exit 1"})
	if err == nil {
		t.Error("captureStderr() error = nil, want exit error")
	}
	if out != "probe\n" {
		t.Errorf("captureStderr() = %q, want %q", out, "probe\n")
	}
}

// ---------------------------------------------------------------------------
// RunGraceful - graceful shutdown with real processes
// ---------------------------------------------------------------------------

func TestRunGraceful(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	tests := []struct {
		name    string
		path    string
		args    []string
		wantErr bool
	}{
		{"success", "sh", []string{"-c", "exit 0"}, false},
		{"non-zero exit", "sh", []string{"-c", "exit 3"}, true},
		{"missing binary", "/nonexistent/ffmpeg", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := RunGraceful(context.Background(), tt.path, tt.args, time.Second)
			if (err != nil) != tt.wantErr {
				t.Errorf("RunGraceful(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestRunGraceful_cancelSendsQuit(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("cat"); err != nil || runtime.GOOS == "windows" {
		t.Skip("cat not available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunGraceful(ctx, "cat", nil, 5*time.Second) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunGraceful() after cancel = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("RunGraceful() did not return after cancellation")
	}
}

func TestRunGraceful_killAfterTimeout(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sleep"); err != nil || runtime.GOOS == "windows" {
		t.Skip("sleep not available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunGraceful(ctx, "sleep", []string{"10"}, 100*time.Millisecond) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("RunGraceful() = %v, want ErrTimeout", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("RunGraceful() did not kill the process")
	}
}
