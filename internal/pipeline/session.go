package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// sessionPrefix names session directories so stray ones are recognizable.
const sessionPrefix = "tilawa-"

// Session is a private scratch directory for one pipeline run.
type Session struct {
	ID  string
	Dir string
}

// NewSession creates a uniquely named directory under root, or under the
// system temp directory when root is empty.
func NewSession(root string) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, sessionPrefix+id.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &Session{ID: id.String(), Dir: dir}, nil
}

// Path returns name inside the session directory.
func (s *Session) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Close removes the directory and everything in it. It is safe to call twice.
func (s *Session) Close() error {
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("remove session directory: %w", err)
	}
	return nil
}
