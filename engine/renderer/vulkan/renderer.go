package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/containers"
	"github.com/spaghettifunk/efvk/engine/core"
)

// FrameStatus is the terminal state of one render-loop iteration.
type FrameStatus int

const (
	// The frame was submitted and handed to the presentation engine.
	FramePresented FrameStatus = iota
	// The surface was out of date. It has been rebuilt and the frame dropped.
	FrameSurfaceInvalid
)

func (fs FrameStatus) String() string {
	if fs == FramePresented {
		return "presented"
	}
	return "surface-invalid"
}

// FrameTarget is everything a record callback needs to draw one frame.
type FrameTarget struct {
	Frame       *Frame
	ImageIndex  uint32
	Image       vk.Image
	Framebuffer *VulkanFramebuffer
	RenderPass  *VulkanRenderpass
	Extent      vk.Extent2D
	ClearColor  [4]float32
}

// RecordFunc records the commands of one frame. It runs with the frame's
// command buffer open and must leave any render pass it begins closed.
type RecordFunc func(cmd Commands, target FrameTarget) error

// RendererDescription is the configuration that distinguishes one renderer from
// another. Behavior lives in the RecordFunc handed to RunFrame.
type RendererDescription struct {
	Name            string
	ClearColor      [4]float32
	PerFrameBuffers []PerFrameBuffer
	// Called after every surface rebuild with the new extent.
	OnSurfaceRecreated func(extent vk.Extent2D) error
}

type RendererOptions struct {
	FramesInFlight int
	FenceTimeout   uint64
	Surface        SurfacePreferences
	// Texture decoding for AssetUploader.LoadTexture. May be nil.
	TextureSource TextureSource
}

func DefaultRendererOptions() RendererOptions {
	return RendererOptions{
		FramesInFlight: DEFAULT_FRAMES_IN_FLIGHT,
		FenceTimeout:   DEFAULT_FENCE_TIMEOUT,
		Surface:        DefaultSurfacePreferences(),
	}
}

// Renderer drives the frame loop: wait, acquire, record, submit, present,
// recreating the surface whenever presentation reports it stale.
type Renderer struct {
	driver  Driver
	desc    RendererDescription
	options RendererOptions

	mainQueue *containers.DeletionQueue
	surface   *SurfaceLifecycle
	frames    *FrameRing
	upload    *UploadContext
	uploader  *AssetUploader

	resized     bool
	frameNumber uint64
	shutdown    bool
}

func NewRenderer(driver Driver, window Window, desc RendererDescription, options RendererOptions) (*Renderer, error) {
	if options.FramesInFlight < 1 {
		return nil, core.Misusef("renderer %q: %d frames in flight", desc.Name, options.FramesInFlight)
	}
	r := &Renderer{
		driver:    driver,
		desc:      desc,
		options:   options,
		mainQueue: containers.NewDeletionQueue("main"),
	}

	var err error
	if r.upload, err = NewUploadContext(driver, r.mainQueue, options.FenceTimeout); err != nil {
		r.mainQueue.Flush()
		return nil, err
	}
	if r.uploader, err = NewAssetUploader(driver, r.upload, r.mainQueue, options.TextureSource); err != nil {
		r.mainQueue.Flush()
		return nil, err
	}
	if r.frames, err = NewFrameRing(driver, r.mainQueue, options.FramesInFlight, desc.PerFrameBuffers); err != nil {
		r.mainQueue.Flush()
		return nil, err
	}
	if r.surface, err = NewSurfaceLifecycle(driver, window, options.Surface); err != nil {
		r.mainQueue.Flush()
		return nil, err
	}
	if desc.OnSurfaceRecreated != nil {
		r.surface.OnRecreated(desc.OnSurfaceRecreated)
		if err := desc.OnSurfaceRecreated(r.surface.Extent()); err != nil {
			r.surface.Destroy()
			r.mainQueue.Flush()
			return nil, err
		}
	}

	core.LogInfo("Renderer %q created: %d frames in flight, %dx%d.", desc.Name, options.FramesInFlight, r.surface.Extent().Width, r.surface.Extent().Height)
	return r, nil
}

// OnResize flags the surface for recreation at the end of the next frame.
func (r *Renderer) OnResize() {
	r.resized = true
}

// RunFrame runs one iteration of the frame loop. A nil error comes with either
// FramePresented or FrameSurfaceInvalid. Any error is fatal.
func (r *Renderer) RunFrame(record RecordFunc) (FrameStatus, error) {
	if r.shutdown {
		return FrameSurfaceInvalid, core.Misusef("renderer %q: frame after shutdown", r.desc.Name)
	}
	frame := r.frames.Current()

	if err := r.driver.WaitForFence(frame.InFlight, r.options.FenceTimeout); err != nil {
		return FrameSurfaceInvalid, err
	}

	imageIndex, status, err := r.driver.AcquireNextImage(r.surface.Swapchain, frame.ImageAvailable, r.options.FenceTimeout)
	if err != nil {
		return FrameSurfaceInvalid, err
	}
	if status == SurfaceOutOfDate {
		// The fence was not reset, so the next wait on this frame passes.
		core.LogDebug("Swapchain out of date on acquire.")
		if err := r.surface.Recreate(); err != nil {
			return FrameSurfaceInvalid, err
		}
		return FrameSurfaceInvalid, nil
	}

	if err := r.driver.ResetFence(frame.InFlight); err != nil {
		return FrameSurfaceInvalid, err
	}
	if err := r.driver.ResetCommandBuffer(frame.CommandBuffer); err != nil {
		return FrameSurfaceInvalid, err
	}
	cmd, err := r.driver.BeginCommandBuffer(frame.CommandBuffer, true)
	if err != nil {
		return FrameSurfaceInvalid, err
	}
	target := FrameTarget{
		Frame:       frame,
		ImageIndex:  imageIndex,
		Image:       r.surface.Swapchain.Images[imageIndex].Handle,
		Framebuffer: r.surface.Framebuffers[imageIndex],
		RenderPass:  r.surface.RenderPass,
		Extent:      r.surface.Extent(),
		ClearColor:  r.desc.ClearColor,
	}
	if record != nil {
		if err := record(cmd, target); err != nil {
			return FrameSurfaceInvalid, errors.Wrapf(err, "renderer %q: recording frame %d", r.desc.Name, r.frameNumber)
		}
	}
	if err := r.driver.EndCommandBuffer(frame.CommandBuffer); err != nil {
		return FrameSurfaceInvalid, err
	}

	err = r.driver.Submit(SubmitInfo{
		CommandBuffer: frame.CommandBuffer,
		Wait:          frame.ImageAvailable,
		WaitStage:     FRAME_WAIT_STAGE,
		Signal:        frame.RenderFinished,
		Fence:         frame.InFlight,
	})
	if err != nil {
		return FrameSurfaceInvalid, err
	}

	presentStatus, err := r.driver.Present(r.surface.Swapchain, frame.RenderFinished, imageIndex)
	if err != nil {
		return FrameSurfaceInvalid, err
	}
	r.frames.Advance()
	r.frameNumber++

	result := FramePresented
	if presentStatus == SurfaceOutOfDate {
		result = FrameSurfaceInvalid
	}
	if presentStatus != SurfaceOptimal || status == SurfaceSuboptimal || r.resized {
		r.resized = false
		core.LogDebug("Recreating surface after present (%s).", presentStatus)
		if err := r.surface.Recreate(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// WaitIdle blocks until the GPU has finished all submitted work.
func (r *Renderer) WaitIdle() error {
	return r.driver.DeviceWaitIdle()
}

// Uploader returns the asset uploader sharing the renderer's upload context.
func (r *Renderer) Uploader() *AssetUploader {
	return r.uploader
}

// Frames exposes the frame ring, mainly for per-frame buffer access outside recording.
func (r *Renderer) Frames() *FrameRing {
	return r.frames
}

func (r *Renderer) Surface() *SurfaceLifecycle {
	return r.surface
}

func (r *Renderer) FrameNumber() uint64 {
	return r.frameNumber
}

func (r *Renderer) Name() string {
	return r.desc.Name
}

// Shutdown waits for the device to go idle and releases every resource the
// renderer created, surface scope first. It is safe to call more than once.
func (r *Renderer) Shutdown() error {
	if r.shutdown {
		return nil
	}
	r.shutdown = true
	err := r.driver.DeviceWaitIdle()
	r.surface.Destroy()
	r.mainQueue.Flush()
	core.LogInfo("Renderer %q shut down after %d frames.", r.desc.Name, r.frameNumber)
	return err
}
