package engine

import (
	"github.com/spaghettifunk/efvk/engine/renderer/vulkan"
)

// Game is what the engine runs. Everything but Name and FnRecord is optional.
type Game struct {
	Name string
	// Clear color and per-frame buffers for the game's renderer. The clear
	// color from the configuration is used when this one is all zero.
	Renderer vulkan.RendererDescription
	// Textures are decoded in parallel and uploaded before FnInitialize runs.
	// Names missing from the asset directory are skipped.
	Textures     []string
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRecord     vulkan.RecordFunc
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func(e *Engine) error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
