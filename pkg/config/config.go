// Package config holds the run configuration for navimate.
//
// Configuration is loaded from an optional YAML file with environment
// variable fallbacks for credentials, and every field has a documented
// default so a missing file never aborts startup.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from Go duration strings
// ("90s", "10m") in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"90s\" or \"10m\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// DialogPolicy selects how native browser dialogs (alert/confirm/prompt)
// are resolved during a run.
type DialogPolicy string

const (
	// DialogAccept accepts every dialog (default).
	DialogAccept DialogPolicy = "accept"

	// DialogDismiss dismisses every dialog.
	DialogDismiss DialogPolicy = "dismiss"
)

// Defaults for the run configuration.
const (
	DefaultModel    = "gpt-4o"
	DefaultMaxSteps = 40
	DefaultTimeout  = 10 * time.Minute
)

// DefaultBlockedURLPatterns lists glob patterns for URLs the agent must not
// navigate to. The default covers OAuth login endpoints that are known to
// hang or loop under headless automation; attempts are refused with an
// explanatory tool failure instead.
var DefaultBlockedURLPatterns = []string{
	"*passport.*/auth*",
	"*accounts.google.com/v3/signin*",
}

// Config is the full run configuration.
type Config struct {
	// Model is the completion model id.
	Model string `yaml:"model"`

	// APIKey authenticates against the completion service. Falls back to
	// OPENAI_API_KEY when empty.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the completion service endpoint for
	// OpenAI-compatible APIs. Falls back to OPENAI_BASE_URL when empty.
	BaseURL string `yaml:"base_url"`

	// MaxSteps bounds the decision loop.
	MaxSteps int `yaml:"max_steps"`

	// Timeout bounds the whole run. Zero disables the bound.
	Timeout Duration `yaml:"timeout"`

	// Headless controls whether the launched browser has a visible window.
	Headless bool `yaml:"headless"`

	// CDPEndpoint, when set, attaches to an existing browser over CDP
	// instead of launching one. An attached browser is borrowed: the run
	// never closes it.
	CDPEndpoint string `yaml:"cdp_endpoint"`

	// DialogPolicy selects the native-dialog strategy for the run.
	DialogPolicy DialogPolicy `yaml:"dialog_policy"`

	// BlockedURLPatterns are glob patterns for denylisted navigation
	// targets (see DefaultBlockedURLPatterns).
	BlockedURLPatterns []string `yaml:"blocked_url_patterns"`

	// ProfilePath points at the user profile YAML file.
	ProfilePath string `yaml:"profile_path"`
}

// Default returns a Config populated with every default value.
func Default() *Config {
	return &Config{
		Model:              DefaultModel,
		MaxSteps:           DefaultMaxSteps,
		Timeout:            Duration(DefaultTimeout),
		Headless:           true,
		DialogPolicy:       DialogAccept,
		BlockedURLPatterns: append([]string(nil), DefaultBlockedURLPatterns...),
	}
}

// Load reads configuration from the given YAML file path, overlaying it on
// the defaults. An empty path yields pure defaults; a missing or unreadable
// file is an error (a misspelled -config flag should not be silent), while
// credentials absent from both file and environment surface later at the
// provider boundary.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.BaseURL == "" {
		c.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
}

func (c *Config) validate() error {
	if c.Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	switch c.DialogPolicy {
	case DialogAccept, DialogDismiss:
	case "":
		c.DialogPolicy = DialogAccept
	default:
		return fmt.Errorf("unknown dialog_policy %q (must be %q or %q)",
			c.DialogPolicy, DialogAccept, DialogDismiss)
	}
	return nil
}
