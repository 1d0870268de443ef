package config

import (
	"bytes"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/efvk/engine/core"
)

// DEFAULT_FILE is looked up in the working directory when no path is given.
const DEFAULT_FILE = "efvk.toml"

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Log      LogConfig      `toml:"log"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	FramesInFlight      int        `toml:"frames_in_flight"`
	PreferredFormat     string     `toml:"preferred_format"`
	PreferredColorSpace string     `toml:"preferred_color_space"`
	PreferMailbox       bool       `toml:"prefer_mailbox"`
	Validation          bool       `toml:"validation"`
	DiscreteGPU         bool       `toml:"discrete_gpu"`
	ClearColor          [4]float32 `toml:"clear_color"`
	// Zero waits forever.
	FenceTimeout Duration `toml:"fence_timeout"`
}

type AssetsConfig struct {
	Dir           string `toml:"dir"`
	DecodeWorkers int    `toml:"decode_workers"`
	Watch         bool   `toml:"watch"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration reads TOML strings such as "5s" or "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Nanoseconds returns the timeout for fence waits. Zero means no timeout.
func (d Duration) Nanoseconds() uint64 {
	if d.Duration <= 0 {
		return ^uint64(0)
	}
	return uint64(d.Duration.Nanoseconds())
}

var surfaceFormats = map[string]vk.Format{
	"B8G8R8A8_SRGB":  vk.FormatB8g8r8a8Srgb,
	"B8G8R8A8_UNORM": vk.FormatB8g8r8a8Unorm,
	"R8G8B8A8_SRGB":  vk.FormatR8g8b8a8Srgb,
	"R8G8B8A8_UNORM": vk.FormatR8g8b8a8Unorm,
}

var colorSpaces = map[string]vk.ColorSpace{
	"SRGB_NONLINEAR": vk.ColorSpaceSrgbNonlinear,
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "efvk",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererConfig{
			FramesInFlight:      2,
			PreferredFormat:     "B8G8R8A8_SRGB",
			PreferredColorSpace: "SRGB_NONLINEAR",
			PreferMailbox:       true,
			DiscreteGPU:         true,
			ClearColor:          [4]float32{0, 0, 0.2, 1},
		},
		Assets: AssetsConfig{
			Dir:           "assets",
			DecodeWorkers: 4,
			Watch:         true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration at path on top of the defaults. A missing file
// is not an error and yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = DEFAULT_FILE
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			core.LogDebug("No config file at %s, using defaults.", path)
			return Default(), nil
		}
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	core.LogDebug("Loaded config from %s.", path)
	return cfg, nil
}

// Parse decodes TOML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.Newf("unknown keys:\n%s", strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, errors.Newf("line %d column %d: %s", row, col, decodeErr.Error())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return errors.Newf("window size %dx%d must be non-zero", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.FramesInFlight < 1 {
		return errors.Newf("frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	if _, err := c.Renderer.SurfaceFormat(); err != nil {
		return err
	}
	if c.Assets.DecodeWorkers < 1 {
		return errors.Newf("decode_workers must be at least 1, got %d", c.Assets.DecodeWorkers)
	}
	for i, channel := range c.Renderer.ClearColor {
		if channel < 0 || channel > 1 {
			return errors.Newf("clear_color[%d] = %v is outside [0, 1]", i, channel)
		}
	}
	return nil
}

// SurfaceFormat resolves the preferred format and color space names.
func (r RendererConfig) SurfaceFormat() (vk.SurfaceFormat, error) {
	format, ok := surfaceFormats[strings.ToUpper(r.PreferredFormat)]
	if !ok {
		return vk.SurfaceFormat{}, errors.Newf("unknown preferred_format %q", r.PreferredFormat)
	}
	colorSpace, ok := colorSpaces[strings.ToUpper(r.PreferredColorSpace)]
	if !ok {
		return vk.SurfaceFormat{}, errors.Newf("unknown preferred_color_space %q", r.PreferredColorSpace)
	}
	return vk.SurfaceFormat{Format: format, ColorSpace: colorSpace}, nil
}

func (l LogConfig) LogLevel() core.LogLevel {
	return core.ParseLogLevel(l.Level)
}
