package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-vrterm/terminal"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "VRTERM"

// Config holds all application configuration. Values are layered: Default, then the TOML file,
// then VRTERM_* environment variables.
type Config struct {
	Window   WindowConfig   `toml:"window" envconfig:"WINDOW"`
	Render   RenderConfig   `toml:"render" envconfig:"RENDER"`
	Terminal TerminalConfig `toml:"terminal" envconfig:"TERMINAL"`
	Head     HeadConfig     `toml:"head" envconfig:"HEAD"`
	Logging  LogConfig      `toml:"logging" envconfig:"LOG"`
	Metrics  MetricsConfig  `toml:"metrics" envconfig:"METRICS"`
}

// WindowConfig holds the host window settings.
type WindowConfig struct {
	Width  int    `toml:"width" split_words:"true"`
	Height int    `toml:"height" split_words:"true"`
	Title  string `toml:"title" split_words:"true"`
}

// RenderConfig holds renderer and frame loop settings.
type RenderConfig struct {
	PresentMode string `toml:"present_mode" split_words:"true"`
	MSAA        int    `toml:"msaa" split_words:"true"`
	Headless    bool   `toml:"headless" split_words:"true"`
	// FrameLimit caps frames per second; 0 leaves pacing to the present mode.
	FrameLimit   int    `toml:"frame_limit" split_words:"true"`
	ShaderDir    string `toml:"shader_dir" split_words:"true"`
	ScreenWidth  int    `toml:"screen_width" split_words:"true"`
	ScreenHeight int    `toml:"screen_height" split_words:"true"`
}

// TerminalConfig holds session settings.
type TerminalConfig struct {
	Shell       string `toml:"shell" split_words:"true"`
	MaxSessions int    `toml:"max_sessions" split_words:"true"`
	Bell        string `toml:"bell" split_words:"true"`
	FontScale   int    `toml:"font_scale" split_words:"true"`
}

// HeadConfig holds the desktop head controller settings.
type HeadConfig struct {
	IPD              float32 `toml:"ipd" split_words:"true"`
	FovDegrees       float32 `toml:"fov_degrees" split_words:"true"`
	MouseSensitivity float32 `toml:"mouse_sensitivity" split_words:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `toml:"level" split_words:"true"`
	Development bool   `toml:"development" split_words:"true"`
	Encoding    string `toml:"encoding" split_words:"true"`
}

// MetricsConfig holds the Prometheus endpoint configuration.
type MetricsConfig struct {
	// Addr is the listen address of /metrics; empty disables the endpoint.
	Addr string `toml:"addr" split_words:"true"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "oxy-vrterm",
		},
		Render: RenderConfig{
			PresentMode:  "vsync",
			MSAA:         4,
			ScreenWidth:  640,
			ScreenHeight: 480,
		},
		Terminal: TerminalConfig{
			MaxSessions: terminal.DefaultMaxSessions,
			Bell:        string(terminal.BellBeep),
			FontScale:   1,
		},
		Head: HeadConfig{
			IPD:              0.064,
			FovDegrees:       90,
			MouseSensitivity: 0.005,
		},
		Logging: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load builds the configuration. The file named by path, or by VRTERM_CONFIG_FILE when path is
// empty, is applied over the defaults, then environment variables are applied over the file.
//
// Parameters:
//   - path: optional TOML file
//
// Returns:
//   - *Config: the validated configuration
//   - error: if the file cannot be read or parsed, an environment value is malformed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// no default tags: unset variables leave the file and default values in place.
	// Leaf fields use split_words rather than envconfig names, which would also be looked up unprefixed.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field for a usable value.
//
// Returns:
//   - error: all problems found, joined
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	switch c.Render.PresentMode {
	case "vsync", "uncapped":
	default:
		errs = append(errs, fmt.Errorf("present mode %q must be vsync or uncapped", c.Render.PresentMode))
	}
	if c.Render.MSAA != 1 && c.Render.MSAA != 4 {
		errs = append(errs, fmt.Errorf("msaa %d must be 1 or 4", c.Render.MSAA))
	}
	if c.Render.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("frame limit %d must not be negative", c.Render.FrameLimit))
	}
	if c.Render.ScreenWidth <= 0 || c.Render.ScreenHeight <= 0 {
		errs = append(errs, fmt.Errorf("screen size %dx%d must be positive", c.Render.ScreenWidth, c.Render.ScreenHeight))
	}
	if c.Terminal.MaxSessions < 1 {
		errs = append(errs, fmt.Errorf("max sessions %d must be at least 1", c.Terminal.MaxSessions))
	}
	if _, err := terminal.ParseBellMode(c.Terminal.Bell); err != nil {
		errs = append(errs, err)
	}
	if c.Terminal.FontScale < terminal.MinScale || c.Terminal.FontScale > terminal.MaxScale {
		errs = append(errs, fmt.Errorf("font scale %d must be in [%d, %d]", c.Terminal.FontScale, terminal.MinScale, terminal.MaxScale))
	}
	if c.Head.IPD < 0 {
		errs = append(errs, fmt.Errorf("ipd %g must not be negative", c.Head.IPD))
	}
	if c.Head.FovDegrees <= 0 || c.Head.FovDegrees >= 180 {
		errs = append(errs, fmt.Errorf("field of view %g must be in (0, 180)", c.Head.FovDegrees))
	}
	switch c.Logging.Encoding {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log encoding %q must be json or console", c.Logging.Encoding))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
