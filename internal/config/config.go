// Package config reads and writes the user's key=value configuration file
// and applies environment fallbacks.
package config

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Config keys.
const (
	KeyOutputDir   = "output-dir"
	KeyAudioDir    = "audio-dir"
	KeyBaseURL     = "base-url"
	KeyManifestURL = "manifest-url"
	KeyPreset      = "preset"
	KeyTextData    = "text-data"
	KeyFFmpegPath  = "ffmpeg-path"
)

// Environment variable fallbacks, consulted when a key is absent from the file.
var envFallbacks = map[string]string{
	KeyOutputDir:   "TILAWA_OUTPUT_DIR",
	KeyAudioDir:    "TILAWA_AUDIO_DIR",
	KeyBaseURL:     "TILAWA_BASE_URL",
	KeyManifestURL: "TILAWA_MANIFEST_URL",
	KeyPreset:      "TILAWA_PRESET",
	KeyTextData:    "TILAWA_TEXT_DATA",
	KeyFFmpegPath:  "FFMPEG_PATH",
}

// Defaults for remote endpoints.
const (
	DefaultBaseURL     = "https://www.everyayah.com/data"
	DefaultManifestURL = "https://www.everyayah.com/data/recitations.js"
	DefaultPreset      = "conservative"
)

// appName names the config and cache directories.
const appName = "go-tilawa"

// Config holds user configuration loaded from ~/.config/go-tilawa/config.
type Config struct {
	OutputDir   string
	AudioDir    string
	BaseURL     string
	ManifestURL string
	Preset      string
	TextData    string
	FFmpegPath  string
}

// Keys returns the recognized configuration keys, sorted.
func Keys() []string {
	return slices.Sorted(maps.Keys(envFallbacks))
}

// IsKey reports whether key is recognized.
func IsKey(key string) bool {
	_, ok := envFallbacks[key]
	return ok
}

// EnvFor returns the environment variable backing key.
func EnvFor(key string) string {
	return envFallbacks[key]
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-tilawa.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file, then fills empty keys from the
// environment, then applies built-in defaults. A missing file is not an error.
func Load() (Config, error) {
	p, err := path()
	if err != nil {
		return Config{}, err
	}

	data, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	get := func(key string) string {
		if v := data[key]; v != "" {
			return v
		}
		return os.Getenv(envFallbacks[key])
	}

	cfg := Config{
		OutputDir:   ExpandPath(get(KeyOutputDir)),
		AudioDir:    ExpandPath(get(KeyAudioDir)),
		BaseURL:     get(KeyBaseURL),
		ManifestURL: get(KeyManifestURL),
		Preset:      get(KeyPreset),
		TextData:    ExpandPath(get(KeyTextData)),
		FFmpegPath:  ExpandPath(get(KeyFFmpegPath)),
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Defaults returns a Config holding only the built-in defaults.
func Defaults() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.ManifestURL == "" {
		c.ManifestURL = DefaultManifestURL
	}
	if c.Preset == "" {
		c.Preset = DefaultPreset
	}
	if c.AudioDir == "" {
		c.AudioDir = DefaultAudioDir()
	}
}

// DefaultAudioDir is the download cache: $XDG_CACHE_HOME/go-tilawa/audio,
// or ./audio when no cache directory can be determined.
func DefaultAudioDir() string {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "audio"
	}
	return filepath.Join(cache, appName, "audio")
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return data, nil
}

// Save writes a single key=value to the config file.
// Existing pairs are kept, comments are not.
func Save(key, value string) error {
	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes keys in sorted order so the file diffs cleanly.
func writeFile(p string, data map[string]string) error {
	var b strings.Builder
	for _, key := range slices.Sorted(maps.Keys(data)) {
		fmt.Fprintf(&b, "%s=%s\n", key, data[key])
	}
	// #nosec G306 -- config file with standard permissions
	if err := os.WriteFile(p, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	data, err := List()
	if err != nil {
		return "", err
	}
	return data[key], nil
}

// List returns all config file values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	return data, nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}
	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}
	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// EnsureWritableDir creates d if needed and verifies a file can be written
// in it.
func EnsureWritableDir(d string) error {
	if d == "" {
		return fmt.Errorf("directory cannot be empty")
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user data dir
			return fmt.Errorf("cannot create directory: %w", err)
		}
	case err != nil:
		return fmt.Errorf("cannot access directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("path is not a directory: %s", d)
	}

	probe, err := os.CreateTemp(d, ".write-test-*")
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	name := probe.Name()
	closeErr := probe.Close()
	_ = os.Remove(name)
	if closeErr != nil {
		return fmt.Errorf("directory is not writable: %w", closeErr)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	return dir()
}
