package engine

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/efvk/engine/assets"
	"github.com/spaghettifunk/efvk/engine/config"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/platform"
	"github.com/spaghettifunk/efvk/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything has been released
	EngineStageStopped
)

// FPS_LOG_INTERVAL is how many frames pass between frame-time log lines.
const FPS_LOG_INTERVAL = 600

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *config.Config

	events       *core.EventBus
	platform     *platform.Platform
	assetManager *assets.AssetManager
	context      *vulkan.VulkanContext
	renderer     *vulkan.Renderer

	clock   *core.Clock
	metrics *core.Metrics

	isRunning   atomic.Bool
	isSuspended bool
	wake        func()
	width       uint32
	height      uint32
	lastTime    float64
}

func New(g *Game, opts ...Option) (*Engine, error) {
	if g == nil || g.FnRecord == nil {
		return nil, errors.New("game needs a record function")
	}
	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		events:       core.NewEventBus(),
		assetManager: assets.NewAssetManager(),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, errors.Wrap(err, "engine option")
		}
	}
	if e.config == nil {
		cfg, err := config.Load("")
		if err != nil {
			return nil, err
		}
		e.config = cfg
	}
	if g.Name == "" {
		g.Name = e.config.Window.Title
	}
	if g.Renderer.Name == "" {
		g.Renderer.Name = g.Name
	}
	if g.Renderer.ClearColor == ([4]float32{}) {
		g.Renderer.ClearColor = e.config.Renderer.ClearColor
	}
	core.SetLogLevel(e.config.Log.LogLevel())
	core.LogDebug("Log level %s.", core.GetLogLevel())

	e.platform = platform.New(e.events)
	e.wake = e.platform.Wake
	e.width = e.config.Window.Width
	e.height = e.config.Window.Height
	return e, nil
}

func (e *Engine) Initialize() (err error) {
	if e.currentStage != EngineStageUninitialized {
		return core.Misusef("engine initialized twice")
	}
	e.currentStage = EngineStageInitializing
	defer func() {
		if err != nil {
			_ = e.teardown()
		}
	}()

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	cfg := e.config
	if err := e.platform.Startup(e.gameInstance.Name, cfg.Window.X, cfg.Window.Y, cfg.Window.Width, cfg.Window.Height); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(cfg.Assets.Dir, cfg.Assets.Watch); err != nil {
		// Running without assets is allowed. Texture loads will fail by name.
		core.LogWarn("asset directory %s unavailable: %s", cfg.Assets.Dir, err)
	}

	ctx, err := vulkan.NewVulkanContext(vulkan.ContextOptions{
		ApplicationName: e.gameInstance.Name,
		Validation:      cfg.Renderer.Validation,
		DiscreteGPU:     cfg.Renderer.DiscreteGPU,
	}, e.platform)
	if err != nil {
		return err
	}
	e.context = ctx

	format, err := cfg.Renderer.SurfaceFormat()
	if err != nil {
		return err
	}
	options := vulkan.DefaultRendererOptions()
	options.FramesInFlight = cfg.Renderer.FramesInFlight
	options.FenceTimeout = cfg.Renderer.FenceTimeout.Nanoseconds()
	options.Surface = vulkan.SurfacePreferences{Format: format, PreferMailbox: cfg.Renderer.PreferMailbox}
	options.TextureSource = e.assetManager

	r, err := vulkan.NewRenderer(e.context, e.platform, e.gameInstance.Renderer, options)
	if err != nil {
		return err
	}
	e.renderer = r

	if len(e.gameInstance.Textures) > 0 {
		if _, err := preloadTextures(context.Background(), e.assetManager, r.Uploader(), e.gameInstance.Textures, cfg.Assets.DecodeWorkers); err != nil {
			return err
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives frames until the window closes, Shutdown is called or a frame
// fails. Everything is released before Run returns.
func (e *Engine) Run() (err error) {
	if e.currentStage != EngineStageInitialized {
		return core.Misusef("engine run in stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	defer func() {
		if teardownErr := e.teardown(); err == nil {
			err = teardownErr
		}
	}()

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		if !e.platform.PumpMessages() {
			break
		}
		e.reloadChangedTextures()

		if e.isSuspended {
			e.platform.WaitEvents()
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.AbsoluteTime()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down: %s", err)
				return err
			}
		}

		status, err := e.renderer.RunFrame(e.gameInstance.FnRecord)
		if err != nil {
			core.LogError("Frame %d failed, shutting down: %s", e.renderer.FrameNumber(), err)
			return err
		}
		if status == vulkan.FrameSurfaceInvalid {
			core.LogDebug("Frame dropped, surface rebuilt at %dx%d.", e.renderer.Surface().Extent().Width, e.renderer.Surface().Extent().Height)
		}

		e.metrics.Update(e.platform.AbsoluteTime() - frameStartTime)
		if e.renderer.FrameNumber()%FPS_LOG_INTERVAL == 0 {
			core.LogDebug("%.1f fps, %.2f ms/frame.", e.metrics.FPS(), e.metrics.FrameTime())
		}
		e.lastTime = currentTime
	}
	return nil
}

// Shutdown asks the frame loop to stop. Safe to call from any goroutine.
// Shutdown stops the loop after the current frame. It is safe to call from
// another goroutine, and wakes a loop parked in WaitEvents while minimized.
func (e *Engine) Shutdown() error {
	e.isRunning.Store(false)
	if e.wake != nil {
		e.wake()
	}
	return nil
}

func (e *Engine) teardown() error {
	e.currentStage = EngineStageShuttingDown
	e.clock.Stop()
	var result error
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			result = errors.CombineErrors(result, err)
		}
	}
	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			result = errors.CombineErrors(result, err)
		}
	}
	if e.context != nil {
		e.context.Destroy()
	}
	e.assetManager.Shutdown()
	e.events.Unregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	e.events.Unregister(core.EVENT_CODE_RESIZED, e)
	if err := e.platform.Shutdown(); err != nil {
		result = errors.CombineErrors(result, err)
	}
	e.currentStage = EngineStageStopped
	core.LogInfo("Engine stopped.")
	return result
}

// reloadChangedTextures evicts textures whose files changed on disk. The game
// picks up the new pixels on its next LoadTexture.
func (e *Engine) reloadChangedTextures() {
	for {
		select {
		case name := <-e.assetManager.Changes():
			uploader := e.renderer.Uploader()
			short := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
			for _, key := range []string{name, short} {
				if _, ok := uploader.Texture(key); !ok {
					continue
				}
				if err := uploader.EvictTexture(key); err != nil {
					core.LogWarn("failed to evict changed texture %s: %s", key, err)
					continue
				}
				core.LogInfo("Texture %s changed on disk, evicted.", key)
			}
		default:
			return
		}
	}
}

func (e *Engine) Renderer() *vulkan.Renderer {
	return e.renderer
}

func (e *Engine) Assets() *assets.AssetManager {
	return e.assetManager
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	width := context.U32[0]
	height := context.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.renderer != nil {
		e.renderer.OnResize()
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError("%s", err)
		}
	}
	return false
}
