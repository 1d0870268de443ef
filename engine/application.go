package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/efvk/engine/config"
	"github.com/spaghettifunk/efvk/engine/renderer/vulkan"
)

// Option configures an Engine at construction.
type Option func(e *Engine) error

// WithConfig uses cfg instead of reading a configuration file.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) error {
		if cfg == nil {
			return errors.New("nil config")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		e.config = cfg
		return nil
	}
}

// WithConfigFile reads the configuration from path. A missing file yields the defaults.
func WithConfigFile(path string) Option {
	return func(e *Engine) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		e.config = cfg
		return nil
	}
}

// WithRenderer replaces the game's renderer description.
func WithRenderer(desc vulkan.RendererDescription) Option {
	return func(e *Engine) error {
		if desc.Name == "" {
			return errors.New("renderer description needs a name")
		}
		e.gameInstance.Renderer = desc
		return nil
	}
}
