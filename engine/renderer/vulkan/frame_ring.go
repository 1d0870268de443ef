package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/containers"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

// PerFrameBuffer describes a host-visible buffer duplicated in every frame slot,
// e.g. per-frame uniforms.
type PerFrameBuffer struct {
	Name  string
	Size  uint64
	Usage vk.BufferUsageFlags
}

// Frame is the per-slot state of the render loop. The CPU may only touch it
// once InFlight has been waited on.
type Frame struct {
	Index          int
	CommandPool    *VulkanCommandPool
	CommandBuffer  *VulkanCommandBuffer
	ImageAvailable *VulkanSemaphore
	RenderFinished *VulkanSemaphore
	InFlight       *VulkanFence

	buffers map[string]*metadata.AllocatedBuffer
}

// Buffer returns the frame's mapped per-frame buffer with the given name, or nil.
func (f *Frame) Buffer(name string) *metadata.AllocatedBuffer {
	return f.buffers[name]
}

// FrameRing holds the frames in flight and selects the current one.
type FrameRing struct {
	ring *containers.Ring[*Frame]
}

// NewFrameRing creates count frames and registers their teardown in queue.
// In-flight fences start signaled so the first wait on each frame returns at once.
func NewFrameRing(driver Driver, queue *containers.DeletionQueue, count int, perFrame []PerFrameBuffer) (*FrameRing, error) {
	if count < 1 {
		return nil, core.Misusef("frame ring of %d frames", count)
	}
	frames := make([]*Frame, count)
	for i := range frames {
		frame, err := newFrame(driver, queue, i, perFrame)
		if err != nil {
			return nil, err
		}
		frames[i] = frame
	}
	core.LogDebug("Frame ring created with %d frames in flight.", count)
	return &FrameRing{ring: containers.NewRing(frames)}, nil
}

func newFrame(driver Driver, queue *containers.DeletionQueue, index int, perFrame []PerFrameBuffer) (*Frame, error) {
	frame := &Frame{
		Index:   index,
		buffers: make(map[string]*metadata.AllocatedBuffer, len(perFrame)),
	}
	var err error

	if frame.CommandPool, err = driver.CreateCommandPool(true); err != nil {
		return nil, err
	}
	pool := frame.CommandPool
	queue.Enqueue(fmt.Sprintf("frame %d command pool", index), func() { driver.DestroyCommandPool(pool) })
	if frame.CommandBuffer, err = driver.AllocateCommandBuffer(pool); err != nil {
		return nil, err
	}

	if frame.ImageAvailable, err = driver.CreateSemaphore(); err != nil {
		return nil, err
	}
	imageAvailable := frame.ImageAvailable
	queue.Enqueue(fmt.Sprintf("frame %d image-available semaphore", index), func() { driver.DestroySemaphore(imageAvailable) })

	if frame.RenderFinished, err = driver.CreateSemaphore(); err != nil {
		return nil, err
	}
	renderFinished := frame.RenderFinished
	queue.Enqueue(fmt.Sprintf("frame %d render-finished semaphore", index), func() { driver.DestroySemaphore(renderFinished) })

	if frame.InFlight, err = driver.CreateFence(true); err != nil {
		return nil, err
	}
	inFlight := frame.InFlight
	queue.Enqueue(fmt.Sprintf("frame %d in-flight fence", index), func() { driver.DestroyFence(inFlight) })

	for _, desc := range perFrame {
		if _, dup := frame.buffers[desc.Name]; dup {
			return nil, core.Misusef("per-frame buffer %q declared twice", desc.Name)
		}
		buffer, err := driver.CreateBuffer(desc.Size, desc.Usage, metadata.MemoryClassHostUpload)
		if err != nil {
			return nil, err
		}
		queue.Enqueue(fmt.Sprintf("frame %d buffer %q", index, desc.Name), func() { driver.DestroyBuffer(buffer) })
		if _, err := driver.MapBuffer(buffer); err != nil {
			return nil, err
		}
		frame.buffers[desc.Name] = buffer
	}
	return frame, nil
}

// Current returns the frame at the cursor.
func (fr *FrameRing) Current() *Frame {
	return fr.ring.Current()
}

// Index returns the cursor position, always in [0, Len()).
func (fr *FrameRing) Index() int {
	return fr.ring.Index()
}

// Advance moves to the next frame slot and returns its index.
func (fr *FrameRing) Advance() int {
	return fr.ring.Advance()
}

func (fr *FrameRing) Len() int {
	return fr.ring.Len()
}

// Frame returns the frame in slot i.
func (fr *FrameRing) Frame(i int) *Frame {
	return fr.ring.At(i)
}
