package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alnah/go-tilawa/internal/pipeline"
)

// defaultProgressCallback returns a progress callback that writes status
// messages to w. Used by the build command.
func defaultProgressCallback(w io.Writer) func(stage string, current, total int) {
	return func(stage string, current, total int) {
		switch stage {
		case pipeline.StageFetch:
			if current == 0 {
				_, _ = fmt.Fprintf(w, "  Fetching %d verses...\n", total)
			}
		case pipeline.StageNormalize:
			_, _ = fmt.Fprintf(w, "  Processing verse %d/%d...\n", current, total)
		case pipeline.StageMerge:
			if current == 0 {
				_, _ = fmt.Fprintln(w, "  Merging verses...")
			}
		}
	}
}

// checkOutputFree fails with ErrOutputExists when path exists and overwriting
// was not requested.
func checkOutputFree(path string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrOutputExists, path)
	}
	return nil
}

// writeFileAtomic writes content to path atomically.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileAtomic(path string, content []byte) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output file already exists: %s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.Write(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}

// removeIfExists deletes path, ignoring a missing file.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot replace %s: %w", path, err)
	}
	return nil
}
