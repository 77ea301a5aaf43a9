// Package config holds the settings of the command-line tools.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/rvbmc/riscu"
	"gopkg.in/yaml.v3"
)

// Program formats.
const (
	FormatAuto = "auto"
	FormatELF  = "elf"
	FormatAsm  = "asm"
)

// ErrInvalidConfig is returned for settings that cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

// LogConfig selects the slog handler of a command.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config describes what to load, where to write the model and how far to
// replay it.
type Config struct {
	Program   string            `yaml:"program"`
	Format    string            `yaml:"format"`
	Address   uint64            `yaml:"address"`
	Output    string            `yaml:"output"`
	MaxSteps  int               `yaml:"max_steps"`
	StopOnBad bool              `yaml:"stop_on_bad"`
	Log       LogConfig         `yaml:"log"`
	Registers map[string]uint64 `yaml:"registers"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Format:   FormatAuto,
		Address:  riscu.DefaultCodeAddress,
		MaxSteps: 100,
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	switch c.Format {
	case FormatAuto, FormatELF, FormatAsm:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps is negative", ErrInvalidConfig)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	if _, err := c.RegisterValues(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured level name to a slog level. "trace" shows
// every record, debug and the per-instruction trace lines included.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
}

// LogHandler creates the slog handler described by the log settings.
func (c Config) LogHandler(w io.Writer) (slog.Handler, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.NewJSONHandler(w, opts), nil
	}
	return slog.NewTextHandler(w, opts), nil
}

// RegisterValues resolves the initial register overrides.
func (c Config) RegisterValues() (map[riscu.Register]uint64, error) {
	values := make(map[riscu.Register]uint64, len(c.Registers))
	for name, v := range c.Registers {
		r, err := riscu.ParseRegister(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if r == riscu.Zero {
			return nil, fmt.Errorf("%w: register zero cannot be set", ErrInvalidConfig)
		}
		values[r] = v
	}
	return values, nil
}

// LoadProgram loads the configured program. With the auto format, .s, .S
// and .asm files are assembled and everything else is read as ELF.
func (c Config) LoadProgram() (*riscu.Program, error) {
	if c.Program == "" {
		return nil, fmt.Errorf("%w: no program given", ErrInvalidConfig)
	}

	format := c.Format
	if format == FormatAuto {
		format = FormatELF
		switch filepath.Ext(c.Program) {
		case ".s", ".S", ".asm":
			format = FormatAsm
		}
	}

	if format == FormatAsm {
		return riscu.LoadAssemblyFile(c.Program, c.Address)
	}
	return riscu.LoadObjectFile(c.Program)
}
