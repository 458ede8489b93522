package audio_test

import (
	"context"
	"os"
	"sync"
)

// mockRunner records FFmpeg invocations and returns canned results.
type mockRunner struct {
	mu    sync.Mutex
	calls [][]string

	stdout    []byte
	stdoutErr error
	// onGraceful runs instead of FFmpeg; it may create the output file.
	onGraceful func(args []string) error
}

func (m *mockRunner) record(name string, args []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string{name}, args...))
}

func (m *mockRunner) Output(_ context.Context, name string, args []string) ([]byte, error) {
	m.record(name, args)
	return m.stdout, m.stdoutErr
}

func (m *mockRunner) RunGraceful(_ context.Context, name string, args []string) error {
	m.record(name, args)
	if m.onGraceful != nil {
		return m.onGraceful(args)
	}
	return os.WriteFile(args[len(args)-1], []byte("ID3"), 0o600)
}

func (m *mockRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockRunner) lastCall() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func contains(args []string, want ...string) bool {
outer:
	for i := range args {
		for j, w := range want {
			if i+j >= len(args) || args[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}
