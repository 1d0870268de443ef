package vulkan

import (
	stdmath "math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

var errSentinel = errors.New("sentinel")

type fakeOp struct {
	kind       string
	src, dst   *metadata.AllocatedBuffer
	srcOffset  uint64
	dstOffset  uint64
	size       uint64
	image      *metadata.AllocatedImage
	baseLevel  uint32
	levelCount uint32
	oldLayout  vk.ImageLayout
	newLayout  vk.ImageLayout
	blit       MipBlit
	extent     vk.Extent2D
}

type fakeRecorder struct {
	driver        *fakeDriver
	commandBuffer *VulkanCommandBuffer
	ops           []fakeOp
}

func (r *fakeRecorder) CopyBuffer(src, dst *metadata.AllocatedBuffer, srcOffset, dstOffset, size uint64) {
	r.ops = append(r.ops, fakeOp{kind: "copy-buffer", src: src, dst: dst, srcOffset: srcOffset, dstOffset: dstOffset, size: size})
}

func (r *fakeRecorder) CopyBufferToImage(src *metadata.AllocatedBuffer, dst *metadata.AllocatedImage, level uint32) {
	r.ops = append(r.ops, fakeOp{kind: "copy-buffer-to-image", src: src, image: dst, baseLevel: level, levelCount: 1, size: src.Size})
}

func (r *fakeRecorder) ImageBarrier(image *metadata.AllocatedImage, baseLevel, levelCount uint32, newLayout vk.ImageLayout) error {
	oldLayout, err := image.Transition(baseLevel, levelCount, newLayout)
	if err != nil {
		return err
	}
	r.ops = append(r.ops, fakeOp{kind: "barrier", image: image, baseLevel: baseLevel, levelCount: levelCount, oldLayout: oldLayout, newLayout: newLayout})
	return nil
}

func (r *fakeRecorder) BlitImage(image *metadata.AllocatedImage, blit MipBlit) {
	r.ops = append(r.ops, fakeOp{kind: "blit", image: image, blit: blit})
}

func (r *fakeRecorder) BeginRenderPass(renderpass *VulkanRenderpass, framebuffer *VulkanFramebuffer, extent vk.Extent2D, clearColor [4]float32) {
	r.commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	r.ops = append(r.ops, fakeOp{kind: "begin-render-pass", extent: extent})
}

func (r *fakeRecorder) EndRenderPass() {
	r.commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
	r.ops = append(r.ops, fakeOp{kind: "end-render-pass"})
}

func (r *fakeRecorder) SetViewport(extent vk.Extent2D) {
	r.ops = append(r.ops, fakeOp{kind: "viewport", extent: extent})
}

func (r *fakeRecorder) SetScissor(extent vk.Extent2D) {
	r.ops = append(r.ops, fakeOp{kind: "scissor", extent: extent})
}

type fakeBufferRecord struct {
	buffer *metadata.AllocatedBuffer
	data   []byte
}

// fakeDriver implements Driver in host memory. Submitted work completes
// immediately; its fence becomes signaled on the next wait.
type fakeDriver struct {
	linearBlit  bool
	depthFormat vk.Format
	support     *VulkanSwapchainSupportInfo
	imageCount  int

	buffers    []*fakeBufferRecord
	images     []*metadata.AllocatedImage
	imageData  map[*metadata.AllocatedImage][]byte
	swapchains []*VulkanSwapchain

	liveBuffers      int
	liveImages       int
	liveViews        int
	liveFences       int
	liveSemaphores   int
	livePools        int
	liveSwapchains   int
	liveRenderPasses int
	liveFramebuffers int

	recorders    map[*VulkanCommandBuffer]*fakeRecorder
	pending      map[*VulkanFence]bool
	executed     []fakeOp
	submits      []SubmitInfo
	waitIdle     int
	events       []string
	acquired     []uint32
	nextImage    uint32
	acquireQueue []SurfaceStatus
	presentQueue []SurfaceStatus

	// Errors injected into the next matching call.
	failCreateImage error
	failSubmit      error
}

var _ Driver = (*fakeDriver)(nil)

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		linearBlit:  true,
		depthFormat: vk.FormatD32Sfloat,
		imageCount:  3,
		support: &VulkanSwapchainSupportInfo{
			Capabilities: vk.SurfaceCapabilities{
				MinImageCount:  2,
				MaxImageCount:  8,
				CurrentExtent:  vk.Extent2D{Width: stdmath.MaxUint32, Height: stdmath.MaxUint32},
				MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: vk.Extent2D{Width: 16384, Height: 16384},
			},
			Formats: []vk.SurfaceFormat{
				{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
				{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			},
			PresentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
		},
		imageData: make(map[*metadata.AllocatedImage][]byte),
		recorders: make(map[*VulkanCommandBuffer]*fakeRecorder),
		pending:   make(map[*VulkanFence]bool),
	}
}

func (d *fakeDriver) record(event string) {
	d.events = append(d.events, event)
}

func (d *fakeDriver) bufferRecord(buffer *metadata.AllocatedBuffer) *fakeBufferRecord {
	for _, rec := range d.buffers {
		if rec.buffer == buffer {
			return rec
		}
	}
	return nil
}

func (d *fakeDriver) live() int {
	return d.liveBuffers + d.liveImages + d.liveViews + d.liveFences + d.liveSemaphores +
		d.livePools + d.liveSwapchains + d.liveRenderPasses + d.liveFramebuffers
}

func (d *fakeDriver) CreateBuffer(size uint64, usage vk.BufferUsageFlags, class metadata.MemoryClass) (*metadata.AllocatedBuffer, error) {
	if size == 0 {
		return nil, core.Misusef("buffer of zero bytes requested")
	}
	buffer := &metadata.AllocatedBuffer{Size: size, Usage: usage, Class: class}
	d.buffers = append(d.buffers, &fakeBufferRecord{buffer: buffer, data: make([]byte, size)})
	d.liveBuffers++
	d.record("create buffer")
	return buffer, nil
}

func (d *fakeDriver) DestroyBuffer(buffer *metadata.AllocatedBuffer) {
	buffer.MarkDestroyed()
	d.liveBuffers--
	d.record("destroy buffer")
}

func (d *fakeDriver) MapBuffer(buffer *metadata.AllocatedBuffer) ([]byte, error) {
	if !buffer.Class.HostVisible() {
		return nil, core.Misusef("map of %s buffer", buffer.Class)
	}
	buffer.Mapped = d.bufferRecord(buffer).data
	return buffer.Mapped, nil
}

func (d *fakeDriver) UnmapBuffer(buffer *metadata.AllocatedBuffer) {
	buffer.Mapped = nil
}

func (d *fakeDriver) CreateImage(info metadata.ImageInfo) (*metadata.AllocatedImage, error) {
	if d.failCreateImage != nil {
		err := d.failCreateImage
		d.failCreateImage = nil
		return nil, err
	}
	image := metadata.NewAllocatedImage(nil, nil, info)
	d.images = append(d.images, image)
	d.liveImages++
	d.record("create image")
	return image, nil
}

func (d *fakeDriver) DestroyImage(image *metadata.AllocatedImage) {
	image.MarkDestroyed()
	d.liveImages--
	d.record("destroy image")
}

func (d *fakeDriver) CreateImageView(image *metadata.AllocatedImage, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	d.liveViews++
	d.record("create view")
	return nil, nil
}

func (d *fakeDriver) DestroyImageView(view vk.ImageView) {
	d.liveViews--
	d.record("destroy view")
}

func (d *fakeDriver) FormatSupportsLinearBlit(format vk.Format) bool {
	return d.linearBlit
}

func (d *fakeDriver) DepthFormat() vk.Format {
	return d.depthFormat
}

func (d *fakeDriver) SurfaceSupport() (*VulkanSwapchainSupportInfo, error) {
	return d.support, nil
}

func (d *fakeDriver) CreateFence(signaled bool) (*VulkanFence, error) {
	d.liveFences++
	return &VulkanFence{IsSignaled: signaled}, nil
}

func (d *fakeDriver) DestroyFence(fence *VulkanFence) {
	d.liveFences--
	delete(d.pending, fence)
}

func (d *fakeDriver) WaitForFence(fence *VulkanFence, timeoutNs uint64) error {
	if fence.IsSignaled {
		return nil
	}
	if d.pending[fence] {
		delete(d.pending, fence)
		fence.IsSignaled = true
		return nil
	}
	// Nothing will ever signal it.
	return errors.Wrap(core.ErrTimeout, "wait on a fence with no pending work")
}

func (d *fakeDriver) ResetFence(fence *VulkanFence) error {
	fence.IsSignaled = false
	return nil
}

func (d *fakeDriver) CreateSemaphore() (*VulkanSemaphore, error) {
	d.liveSemaphores++
	return &VulkanSemaphore{}, nil
}

func (d *fakeDriver) DestroySemaphore(semaphore *VulkanSemaphore) {
	d.liveSemaphores--
}

func (d *fakeDriver) DeviceWaitIdle() error {
	d.waitIdle++
	for fence := range d.pending {
		fence.IsSignaled = true
		delete(d.pending, fence)
	}
	d.record("wait idle")
	return nil
}

func (d *fakeDriver) CreateCommandPool(resetBuffers bool) (*VulkanCommandPool, error) {
	d.livePools++
	return &VulkanCommandPool{ResetBuffers: resetBuffers}, nil
}

func (d *fakeDriver) DestroyCommandPool(pool *VulkanCommandPool) {
	d.livePools--
	for _, cb := range pool.buffers {
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
		delete(d.recorders, cb)
	}
	pool.buffers = nil
}

func (d *fakeDriver) ResetCommandPool(pool *VulkanCommandPool) error {
	pool.MarkReset()
	return nil
}

func (d *fakeDriver) AllocateCommandBuffer(pool *VulkanCommandPool) (*VulkanCommandBuffer, error) {
	cb := &VulkanCommandBuffer{State: COMMAND_BUFFER_STATE_READY}
	pool.Register(cb)
	return cb, nil
}

func (d *fakeDriver) BeginCommandBuffer(commandBuffer *VulkanCommandBuffer, singleUse bool) (Commands, error) {
	if commandBuffer.State != COMMAND_BUFFER_STATE_READY {
		return nil, core.Misusef("begin of command buffer in state %s", commandBuffer.State)
	}
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
	recorder := &fakeRecorder{driver: d, commandBuffer: commandBuffer}
	d.recorders[commandBuffer] = recorder
	return recorder, nil
}

func (d *fakeDriver) EndCommandBuffer(commandBuffer *VulkanCommandBuffer) error {
	if commandBuffer.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return core.Misusef("end of command buffer inside a render pass")
	}
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (d *fakeDriver) ResetCommandBuffer(commandBuffer *VulkanCommandBuffer) error {
	commandBuffer.State = COMMAND_BUFFER_STATE_READY
	delete(d.recorders, commandBuffer)
	return nil
}

// Submit executes the recorded transfers right away.
func (d *fakeDriver) Submit(info SubmitInfo) error {
	if d.failSubmit != nil {
		err := d.failSubmit
		d.failSubmit = nil
		return err
	}
	if info.CommandBuffer.State != COMMAND_BUFFER_STATE_RECORDING_ENDED {
		return core.Misusef("submit of command buffer in state %s", info.CommandBuffer.State)
	}
	if info.Fence != nil {
		if d.pending[info.Fence] {
			return core.Misusef("submit with a fence that is already pending")
		}
		info.Fence.IsSignaled = false
		d.pending[info.Fence] = true
	}
	for _, op := range d.recorders[info.CommandBuffer].ops {
		switch op.kind {
		case "copy-buffer":
			src := d.bufferRecord(op.src).data
			dst := d.bufferRecord(op.dst).data
			copy(dst[op.dstOffset:op.dstOffset+op.size], src[op.srcOffset:op.srcOffset+op.size])
		case "copy-buffer-to-image":
			d.imageData[op.image] = append([]byte(nil), d.bufferRecord(op.src).data...)
		}
		d.executed = append(d.executed, op)
	}
	info.CommandBuffer.State = COMMAND_BUFFER_STATE_SUBMITTED
	d.submits = append(d.submits, info)
	d.record("submit")
	return nil
}

func (d *fakeDriver) CreateSwapchain(extent vk.Extent2D, prefs SurfacePreferences, support *VulkanSwapchainSupportInfo) (*VulkanSwapchain, error) {
	format := ChooseSurfaceFormat(support.Formats, prefs.Format)
	swapchain := &VulkanSwapchain{
		ImageFormat: format,
		PresentMode: ChoosePresentMode(support.PresentModes, prefs.PreferMailbox),
		Extent:      extent,
	}
	for i := 0; i < d.imageCount; i++ {
		swapchain.Images = append(swapchain.Images, metadata.NewAllocatedImage(nil, nil, metadata.ImageInfo{
			Width:     extent.Width,
			Height:    extent.Height,
			MipLevels: 1,
			Format:    format.Format,
		}))
	}
	d.swapchains = append(d.swapchains, swapchain)
	d.liveSwapchains++
	d.nextImage = 0
	d.record("create swapchain")
	return swapchain, nil
}

func (d *fakeDriver) DestroySwapchain(swapchain *VulkanSwapchain) {
	d.liveSwapchains--
	swapchain.Images = nil
	d.record("destroy swapchain")
}

func (d *fakeDriver) AcquireNextImage(swapchain *VulkanSwapchain, signal *VulkanSemaphore, timeoutNs uint64) (uint32, SurfaceStatus, error) {
	status := SurfaceOptimal
	if len(d.acquireQueue) > 0 {
		status, d.acquireQueue = d.acquireQueue[0], d.acquireQueue[1:]
	}
	d.record("acquire")
	if status == SurfaceOutOfDate {
		return 0, status, nil
	}
	index := d.nextImage % uint32(len(swapchain.Images))
	d.nextImage++
	d.acquired = append(d.acquired, index)
	return index, status, nil
}

func (d *fakeDriver) Present(swapchain *VulkanSwapchain, wait *VulkanSemaphore, imageIndex uint32) (SurfaceStatus, error) {
	status := SurfaceOptimal
	if len(d.presentQueue) > 0 {
		status, d.presentQueue = d.presentQueue[0], d.presentQueue[1:]
	}
	d.record("present")
	return status, nil
}

func (d *fakeDriver) CreateRenderPass(colorFormat, depthFormat vk.Format) (*VulkanRenderpass, error) {
	d.liveRenderPasses++
	d.record("create render pass")
	return &VulkanRenderpass{ColorFormat: colorFormat, DepthFormat: depthFormat, Depth: 1.0}, nil
}

func (d *fakeDriver) DestroyRenderPass(renderpass *VulkanRenderpass) {
	d.liveRenderPasses--
	d.record("destroy render pass")
}

func (d *fakeDriver) CreateFramebuffer(renderpass *VulkanRenderpass, extent vk.Extent2D, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	d.liveFramebuffers++
	d.record("create framebuffer")
	return &VulkanFramebuffer{Extent: extent, Attachments: attachments, Renderpass: renderpass}, nil
}

func (d *fakeDriver) DestroyFramebuffer(framebuffer *VulkanFramebuffer) {
	d.liveFramebuffers--
	d.record("destroy framebuffer")
}

// fakeWindow reports scripted framebuffer sizes. Each WaitEvents moves to the next one.
type fakeWindow struct {
	sizes [][2]uint32
	waits int
}

func newFakeWindow(width, height uint32) *fakeWindow {
	return &fakeWindow{sizes: [][2]uint32{{width, height}}}
}

func (w *fakeWindow) FramebufferSize() (uint32, uint32) {
	return w.sizes[0][0], w.sizes[0][1]
}

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if len(w.sizes) > 1 {
		w.sizes = w.sizes[1:]
	}
}

func (w *fakeWindow) script(sizes ...[2]uint32) {
	w.sizes = sizes
}

type fakeTextureSource struct {
	loads    map[string]int
	textures map[string]*metadata.Texture
}

func (s *fakeTextureSource) LoadTexture(path string) (*metadata.Texture, error) {
	if s.loads == nil {
		s.loads = make(map[string]int)
	}
	s.loads[path]++
	texture, ok := s.textures[path]
	if !ok {
		return nil, errors.Newf("no such texture %q", path)
	}
	return texture, nil
}

// solidTexture returns a width x height RGBA8 texture filled with one byte value.
func solidTexture(width, height uint32, value byte) *metadata.Texture {
	pixels := make([]byte, width*height*metadata.TEXTURE_CHANNEL_COUNT)
	for i := range pixels {
		pixels[i] = value
	}
	return &metadata.Texture{Width: width, Height: height, Pixels: pixels}
}
