package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the file form of the runtime options.
//
// Example:
//
//	poll_interval: 250ms
//	handle_signals: true
//	signals: [SIGINT, SIGTERM]
//	log_level: info
type Config struct {
	// PollInterval is how often a drain checks for in-flight guarded operations.
	PollInterval time.Duration `yaml:"poll_interval"`

	// HandleSignals enables shutdown on OS signals.
	HandleSignals bool `yaml:"handle_signals"`

	// Signals lists the signals that trigger shutdown, e.g. "SIGINT", "SIGTERM".
	Signals []string `yaml:"signals"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

var signalNames = map[string]os.Signal{
	"SIGINT":  os.Interrupt,
	"SIGTERM": syscall.SIGTERM,
	"SIGHUP":  syscall.SIGHUP,
	"SIGQUIT": syscall.SIGQUIT,
}

// DefaultConfig returns the configuration matching New with no options.
func DefaultConfig() Config {
	return Config{
		PollInterval:  DefaultPollInterval,
		HandleSignals: true,
		Signals:       []string{"SIGINT", "SIGTERM"},
		LogLevel:      "info",
	}
}

// LoadConfig loads and validates a YAML configuration file. Keys missing from
// the file keep their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, ConfigError{Path: path, Cause: fmt.Errorf("failed to load: %w", err)}
	}

	var loaded Config
	if err := k.UnmarshalWithConf("", &loaded, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, ConfigError{Path: path, Cause: fmt.Errorf("failed to parse: %w", err)}
	}

	cfg := DefaultConfig()
	if k.Exists("poll_interval") {
		cfg.PollInterval = loaded.PollInterval
	}
	if k.Exists("handle_signals") {
		cfg.HandleSignals = loaded.HandleSignals
	}
	if k.Exists("signals") {
		cfg.Signals = loaded.Signals
	}
	if k.Exists("log_level") {
		cfg.LogLevel = loaded.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		var cfgErr ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
			return nil, cfgErr
		}
		return nil, ConfigError{Path: path, Cause: err}
	}

	return &cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return ConfigError{Field: "poll_interval", Cause: fmt.Errorf("must be positive, got %v", c.PollInterval)}
	}

	if c.HandleSignals && len(c.Signals) == 0 {
		return ConfigError{Field: "signals", Cause: errors.New("at least one signal is required when handle_signals is set")}
	}

	if _, err := c.signals(); err != nil {
		return ConfigError{Field: "signals", Cause: err}
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return ConfigError{Field: "log_level", Cause: err}
	}

	return nil
}

// Options converts the configuration into runtime options, including a zap
// production logger at the configured level.
func (c *Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	level, _ := zapcore.ParseLevel(c.LogLevel)
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, ConfigError{Field: "log_level", Cause: fmt.Errorf("failed to build logger: %w", err)}
	}

	opts := []Option{
		WithLogger(logger),
		WithPollInterval(c.PollInterval),
	}

	if c.HandleSignals {
		signals, _ := c.signals()
		opts = append(opts, WithSignals(signals...))
	} else {
		opts = append(opts, WithoutSignalHandling())
	}

	return opts, nil
}

func (c *Config) signals() ([]os.Signal, error) {
	signals := make([]os.Signal, 0, len(c.Signals))
	for _, name := range c.Signals {
		key := strings.ToUpper(strings.TrimSpace(name))
		if !strings.HasPrefix(key, "SIG") {
			key = "SIG" + key
		}

		sig, ok := signalNames[key]
		if !ok {
			return nil, fmt.Errorf("unsupported signal %q", name)
		}
		signals = append(signals, sig)
	}
	return signals, nil
}
