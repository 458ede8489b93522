package cli

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alnah/go-tilawa/internal/config"
	"github.com/alnah/go-tilawa/internal/mix"
)

// Notes:
// - These tests redirect XDG_CONFIG_HOME with t.Setenv, so none run in parallel.

func configHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return newHarness(config.Config{}, noFFmpeg())
}

// ---------------------------------------------------------------------------
// Tests for runConfigSet
// ---------------------------------------------------------------------------

func TestRunConfigSet_validValues(t *testing.T) {
	h := configHarness(t)
	outputDir := filepath.Join(t.TempDir(), "tracks")

	sets := [][2]string{
		{config.KeyOutputDir, outputDir},
		{config.KeyPreset, "aggressive"},
		{config.KeyBaseURL, "https://mirror.example/data/"},
	}
	for _, kv := range sets {
		if err := runConfigSet(h.env, kv[0], kv[1]); err != nil {
			t.Fatalf("runConfigSet(%q, %q): %v", kv[0], kv[1], err)
		}
	}

	if got, _ := config.Get(config.KeyOutputDir); got != outputDir {
		t.Errorf("output-dir = %q, want %q", got, outputDir)
	}
	if got, _ := config.Get(config.KeyBaseURL); got != "https://mirror.example/data" {
		t.Errorf("base-url = %q, want trailing slash trimmed", got)
	}
	if !strings.Contains(h.stderr.String(), "Set preset = aggressive") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestRunConfigSet_invalidValues(t *testing.T) {
	h := configHarness(t)

	tests := []struct {
		key, value string
		want       error
	}{
		{config.KeyPreset, "gentle", mix.ErrUnknownPreset},
		{config.KeyBaseURL, "ftp://example.com", ErrInvalidConfigValue},
		{config.KeyManifestURL, "not a url", ErrInvalidConfigValue},
		{config.KeyTextData, filepath.Join(t.TempDir(), "missing.json"), ErrInvalidConfigValue},
	}
	for _, tt := range tests {
		err := runConfigSet(h.env, tt.key, tt.value)
		if !errors.Is(err, tt.want) {
			t.Errorf("runConfigSet(%q, %q) = %v, want %v", tt.key, tt.value, err, tt.want)
		}
	}

	if err := runConfigSet(h.env, "colour", "blue"); err == nil {
		t.Error("runConfigSet with unknown key succeeded")
	}
}

// ---------------------------------------------------------------------------
// Tests for runConfigGet and runConfigList
// ---------------------------------------------------------------------------

func TestRunConfigGet_envFallback(t *testing.T) {
	h := configHarness(t)
	h.env.Getenv = func(key string) string {
		if key == "TILAWA_PRESET" {
			return "conservative"
		}
		return ""
	}

	if err := runConfigGet(h.env, config.KeyPreset); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(h.stdout.String()); got != "conservative" {
		t.Errorf("config get preset = %q, want conservative", got)
	}
}

func TestRunConfigList(t *testing.T) {
	h := configHarness(t)

	if err := runConfigList(h.env); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.stdout.String(), "No configuration set.") {
		t.Errorf("empty list output = %q", h.stdout.String())
	}

	if err := config.Save(config.KeyPreset, "default"); err != nil {
		t.Fatal(err)
	}
	h.env.Getenv = func(key string) string {
		if key == "TILAWA_AUDIO_DIR" {
			return "/srv/audio"
		}
		return ""
	}
	h.stdout = &syncBuffer{}
	h.env.Stdout = h.stdout

	if err := runConfigList(h.env); err != nil {
		t.Fatal(err)
	}
	want := "audio-dir=/srv/audio (from env)\npreset=default\n"
	if got := h.stdout.String(); got != want {
		t.Errorf("config list =\n%s\nwant\n%s", got, want)
	}
}

func TestKeyHelp(t *testing.T) {
	t.Parallel()

	help := keyHelp()
	for _, key := range config.Keys() {
		if !strings.Contains(help, key) || !strings.Contains(help, config.EnvFor(key)) {
			t.Errorf("help is missing %s or its env var:\n%s", key, help)
		}
	}
}
