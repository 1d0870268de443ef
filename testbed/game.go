package testbed

import (
	"encoding/binary"
	gomath "math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine"
	"github.com/spaghettifunk/efvk/engine/assets"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
	"github.com/spaghettifunk/efvk/engine/renderer/vulkan"
)

const (
	CHECKER_TEXTURE = "checker"
	GLOBALS_BUFFER  = "globals"
	// time, width, height, pad
	GLOBALS_SIZE = 16
)

type vertex struct {
	Position [3]float32
	UV       [2]float32
}

type TestGame struct {
	*engine.Game
}

type gameState struct {
	engine   *engine.Engine
	quad     *metadata.Mesh
	checker  *metadata.GpuTexture
	elapsed  float64
	width    uint32
	height   uint32
	recorded uint64
}

func NewTestGame() *TestGame {
	state := &gameState{}
	tg := &TestGame{
		Game: &engine.Game{
			Name: "efvk testbed",
			Renderer: vulkan.RendererDescription{
				Name: "testbed",
				PerFrameBuffers: []vulkan.PerFrameBuffer{
					{Name: GLOBALS_BUFFER, Size: GLOBALS_SIZE, Usage: vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)},
				},
			},
			Textures: []string{CHECKER_TEXTURE},
			State:    state,
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRecord = tg.Record
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogInfo("initializing testbed...")
	s := g.state()
	s.engine = e
	uploader := e.Renderer().Uploader()

	s.quad = metadata.NewMesh("quad", []vertex{
		{Position: [3]float32{-0.5, -0.5, 0}, UV: [2]float32{0, 0}},
		{Position: [3]float32{0.5, -0.5, 0}, UV: [2]float32{1, 0}},
		{Position: [3]float32{0.5, 0.5, 0}, UV: [2]float32{1, 1}},
		{Position: [3]float32{-0.5, 0.5, 0}, UV: [2]float32{0, 1}},
	}, []uint32{0, 1, 2, 2, 3, 0})
	if err := uploader.UploadMesh(s.quad); err != nil {
		return err
	}

	// Resident already when the engine preloaded it from disk.
	checker, err := uploader.LoadTexture(CHECKER_TEXTURE)
	if errors.Is(err, assets.ErrAssetNotFound) {
		core.LogWarn("no %s texture on disk, generating one", CHECKER_TEXTURE)
		checker, err = uploader.UploadTexture(CHECKER_TEXTURE, Checkerboard(256, 256, 32))
	}
	if err != nil {
		return err
	}
	s.checker = checker
	core.LogInfo("Testbed resources resident: %+v", uploader.Stats())
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	s := g.state()
	s.elapsed += deltaTime
	// Re-resolve each frame so a texture evicted after a file change is reloaded.
	checker, err := s.engine.Renderer().Uploader().LoadTexture(CHECKER_TEXTURE)
	if err != nil && !errors.Is(err, assets.ErrAssetNotFound) {
		return err
	}
	if checker != nil {
		s.checker = checker
	}
	return nil
}

// Record clears the frame to a slowly cycling color and publishes frame globals.
func (g *TestGame) Record(cmd vulkan.Commands, target vulkan.FrameTarget) error {
	s := g.state()
	globals := target.Frame.Buffer(GLOBALS_BUFFER)
	if globals == nil {
		return errors.Newf("frame %d has no %s buffer", target.Frame.Index, GLOBALS_BUFFER)
	}
	binary.LittleEndian.PutUint32(globals.Mapped[0:], gomath.Float32bits(float32(s.elapsed)))
	binary.LittleEndian.PutUint32(globals.Mapped[4:], target.Extent.Width)
	binary.LittleEndian.PutUint32(globals.Mapped[8:], target.Extent.Height)

	color := target.ClearColor
	color[0] = float32(0.5 + 0.5*gomath.Sin(s.elapsed))
	cmd.BeginRenderPass(target.RenderPass, target.Framebuffer, target.Extent, color)
	cmd.SetViewport(target.Extent)
	cmd.SetScissor(target.Extent)
	cmd.EndRenderPass()
	s.recorded++
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	s := g.state()
	s.width = width
	s.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("testbed recorded %d frames", g.state().recorded)
	return nil
}

// Checkerboard builds a two-tone RGBA8 texture with square cells of cell pixels.
func Checkerboard(width, height, cell uint32) *metadata.Texture {
	pixels := make([]byte, 0, width*height*metadata.TEXTURE_CHANNEL_COUNT)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			v := byte(0x20)
			if (x/cell+y/cell)%2 == 0 {
				v = 0xe0
			}
			pixels = append(pixels, v, v, v, 0xff)
		}
	}
	return &metadata.Texture{Name: CHECKER_TEXTURE, Width: width, Height: height, Pixels: pixels}
}
