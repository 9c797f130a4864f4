// Package config loads cadence settings from an optional YAML file and
// CADENCE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/editor"
	"github.com/alexanderramin/cadence/internal/sequence"
	"github.com/alexanderramin/cadence/internal/verify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CADENCE_LOG_LEVEL.
const EnvPrefix = "CADENCE"

type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Verify    VerifyConfig    `mapstructure:"verify"`
	Highlight HighlightConfig `mapstructure:"highlight"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	UseCases bool   `mapstructure:"use_cases"`
}

type EngineConfig struct {
	// BranchingActions lists the actions that open a LEFT/RIGHT fork.
	// Every other action continues on BOTTOM.
	BranchingActions []string `mapstructure:"branching_actions"`
	CheckInvariants  bool     `mapstructure:"check_invariants"`
}

type VerifyConfig struct {
	RequireTerminatedBranches bool `mapstructure:"require_terminated_branches"`
}

type HighlightConfig struct {
	// Duration of zero keeps a rejected step flagged until it is cleared.
	Duration time.Duration `mapstructure:"duration"`
}

// Dir is the per-user directory holding the database and config file.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".cadence"), nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("db.path", filepath.Join(dir, "cadence.db"))
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.use_cases", false)
	v.SetDefault("engine.branching_actions", []string{})
	v.SetDefault("engine.check_invariants", false)
	v.SetDefault("verify.require_terminated_branches", false)
	v.SetDefault("highlight.duration", 3*time.Second)
}

// Load reads path, or ~/.cadence/config.yaml when path is empty, then
// applies environment overrides. A missing default file is not an error;
// a missing explicit one is.
func Load(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("db.path", EnvPrefix+"_DB", EnvPrefix+"_DB_PATH"); err != nil {
		return nil, fmt.Errorf("binding db env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, "config.yaml")
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)):
		default:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DB.Path) == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if _, err := c.policy(); err != nil {
		errs = append(errs, fmt.Errorf("engine.branching_actions: %w", err))
	}
	if c.Highlight.Duration < 0 {
		errs = append(errs, fmt.Errorf("highlight.duration must not be negative, got %s", c.Highlight.Duration))
	}
	return errors.Join(errs...)
}

// LogLevel returns the parsed log level, falling back to warn.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.WarnLevel
	}
	return lvl
}

func (c *Config) policy() (sequence.Policy, error) {
	actions := make([]domain.Command, 0, len(c.Engine.BranchingActions))
	for _, name := range c.Engine.BranchingActions {
		cmd, err := domain.ParseCommand(strings.TrimSpace(name))
		if err != nil {
			return sequence.Policy{}, err
		}
		actions = append(actions, cmd)
	}
	return sequence.NewPolicy(actions...)
}

// EngineOptions translates the engine section into draft options.
func (c *Config) EngineOptions() ([]sequence.Option, error) {
	p, err := c.policy()
	if err != nil {
		return nil, fmt.Errorf("engine.branching_actions: %w", err)
	}
	return []sequence.Option{
		sequence.WithPolicy(p),
		sequence.WithInvariantChecks(c.Engine.CheckInvariants),
	}, nil
}

// HighlightFor translates highlight.duration for editor.Session, where zero
// means the built-in default rather than "until cleared".
func (c *Config) HighlightFor() time.Duration {
	if c.Highlight.Duration == 0 {
		return editor.HighlightUntilCleared
	}
	return c.Highlight.Duration
}

func (c *Config) VerifyOptions() verify.Options {
	return verify.Options{RequireTerminatedBranches: c.Verify.RequireTerminatedBranches}
}
