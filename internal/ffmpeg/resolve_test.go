package ffmpeg

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type fakeStatter map[string]bool

func (f fakeStatter) Stat(name string) (os.FileInfo, error) {
	if f[name] {
		return nil, nil
	}
	return nil, os.ErrNotExist
}

type fakeEnv struct {
	vars map[string]string
	path string
}

func (f fakeEnv) Getenv(key string) string { return f.vars[key] }

func (f fakeEnv) LookPath(string) (string, error) {
	if f.path == "" {
		return "", errors.New("not in PATH")
	}
	return f.path, nil
}

// ---------------------------------------------------------------------------
// TestResolver_Resolve - precedence
// ---------------------------------------------------------------------------

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		explicit string
		env      fakeEnv
		files    fakeStatter
		want     string
		wantErr  string
	}{
		{
			name:     "explicit path wins",
			explicit: "/opt/ffmpeg",
			env:      fakeEnv{vars: map[string]string{EnvFFmpegPath: "/env/ffmpeg"}, path: "/usr/bin/ffmpeg"},
			files:    fakeStatter{"/opt/ffmpeg": true, "/env/ffmpeg": true},
			want:     "/opt/ffmpeg",
		},
		{
			name:  "env var before PATH",
			env:   fakeEnv{vars: map[string]string{EnvFFmpegPath: "/env/ffmpeg"}, path: "/usr/bin/ffmpeg"},
			files: fakeStatter{"/env/ffmpeg": true},
			want:  "/env/ffmpeg",
		},
		{
			name: "PATH lookup",
			env:  fakeEnv{path: "/usr/bin/ffmpeg"},
			want: "/usr/bin/ffmpeg",
		},
		{
			name:     "missing explicit path is an error",
			explicit: "/gone/ffmpeg",
			env:      fakeEnv{path: "/usr/bin/ffmpeg"},
			files:    fakeStatter{},
			wantErr:  "ffmpeg-path",
		},
		{
			name:    "nothing found",
			env:     fakeEnv{},
			wantErr: "brew install",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewResolver(
				WithExplicitPath(tt.explicit),
				WithEnvProvider(tt.env),
				WithFileStatter(tt.files),
				WithGOOS("darwin"),
			)
			got, err := r.Resolve(context.Background())

			if tt.wantErr != "" {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Resolve() error %q should mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_installInstructions(t *testing.T) {
	t.Parallel()

	for goos, want := range map[string]string{
		"darwin":  "brew",
		"linux":   "apt",
		"windows": "winget",
		"plan9":   "ffmpeg.org",
	} {
		r := NewResolver(WithGOOS(goos))
		if got := r.installInstructions(); !strings.Contains(got, want) {
			t.Errorf("installInstructions(%s) missing %q", goos, want)
		}
	}
}
