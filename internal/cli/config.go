package cli

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-tilawa/internal/config"
	"github.com/alnah/go-tilawa/internal/mix"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-tilawa/config.
Settings can also be overridden via environment variables.

Supported settings:
` + keyHelp(),
		Example: `  tilawa config set output-dir ~/Videos/recitations
  tilawa config set preset aggressive
  tilawa config get audio-dir
  tilawa config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// keyDescriptions documents every configuration key.
var keyDescriptions = map[string]string{
	config.KeyOutputDir:   "Default directory for built tracks",
	config.KeyAudioDir:    "Download cache for verse audio",
	config.KeyBaseURL:     "Verse audio host",
	config.KeyManifestURL: "Recitations manifest URL",
	config.KeyPreset:      "Trim preset: " + strings.Join(mix.Presets(), ", "),
	config.KeyTextData:    "Uthmanic Hafs JSON with verse text",
	config.KeyFFmpegPath:  "FFmpeg binary",
}

func keyHelp() string {
	var b strings.Builder
	for _, key := range config.Keys() {
		fmt.Fprintf(&b, "  %-13s %s (env: %s)\n", key, keyDescriptions[key], config.EnvFor(key))
	}
	return strings.TrimRight(b.String(), "\n")
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Directories are created if they don't exist. Files must exist.`,
		Example: `  tilawa config set output-dir ~/Videos/recitations
  tilawa config set base-url https://www.everyayah.com/data`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			return runConfigSet(env, key, value)
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  tilawa config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable overrides.`,
		Example: `  tilawa config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if !config.IsKey(key) {
		return fmt.Errorf("unknown config key %q (valid keys: %v)", key, config.Keys())
	}

	value, err := validateConfigValue(key, value)
	if err != nil {
		return err
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// validateConfigValue checks value for key and returns the form to store.
func validateConfigValue(key, value string) (string, error) {
	switch key {
	case config.KeyOutputDir, config.KeyAudioDir:
		expanded := config.ExpandPath(value)
		if err := config.EnsureWritableDir(expanded); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrInvalidConfigValue, key, err)
		}
		return expanded, nil
	case config.KeyTextData, config.KeyFFmpegPath:
		expanded := config.ExpandPath(value)
		if _, err := os.Stat(expanded); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrInvalidConfigValue, key, err)
		}
		return expanded, nil
	case config.KeyBaseURL, config.KeyManifestURL:
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", fmt.Errorf("%w: %s must be an http(s) URL, got %q", ErrInvalidConfigValue, key, value)
		}
		return strings.TrimRight(value, "/"), nil
	case config.KeyPreset:
		if _, err := mix.LookupPreset(value); err != nil {
			return "", err
		}
	}
	return value, nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !config.IsKey(key) {
		return fmt.Errorf("unknown config key %q (valid keys: %v)", key, config.Keys())
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}

	// Check environment variable fallback.
	if value == "" {
		value = env.Getenv(config.EnvFor(key))
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}

	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	// Add environment variable values for completeness.
	for _, key := range config.Keys() {
		if _, ok := data[key]; ok {
			continue
		}
		if envVal := env.Getenv(config.EnvFor(key)); envVal != "" {
			data[key] = envVal + " (from env)"
		}
	}

	if len(data) == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		for _, key := range config.Keys() {
			fmt.Fprintf(env.Stdout, "  %s\n", key)
		}
		return nil
	}

	for _, key := range config.Keys() {
		if value, ok := data[key]; ok {
			fmt.Fprintf(env.Stdout, "%s=%s\n", key, value)
		}
	}

	return nil
}
