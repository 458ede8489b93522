package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/alnah/go-tilawa/internal/ffmpeg"
)

// gracefulTimeout bounds how long an interrupted encode may take to finalize.
const gracefulTimeout = 5 * time.Second

// commandRunner executes FFmpeg.
type commandRunner interface {
	// Output returns stdout only (raw PCM decoding).
	Output(ctx context.Context, name string, args []string) ([]byte, error)
	// RunGraceful runs an encode that finalizes its output on cancellation.
	RunGraceful(ctx context.Context, name string, args []string) error
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

var (
	_ commandRunner = osCommandRunner{}
	_ fileStatter   = osFileStatter{}
)

// osCommandRunner implements commandRunner using os/exec.
type osCommandRunner struct{}

func (osCommandRunner) Output(ctx context.Context, name string, args []string) ([]byte, error) {
	// #nosec G204 -- name is the resolved ffmpeg binary, args are built here
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (osCommandRunner) RunGraceful(ctx context.Context, name string, args []string) error {
	return ffmpeg.RunGraceful(ctx, name, args, gracefulTimeout)
}

// osFileStatter implements fileStatter using os.Stat.
type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}
