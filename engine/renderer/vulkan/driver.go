package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

// Driver is the slice of the Vulkan API the lifecycle core issues its calls
// through. VulkanContext implements it against a real device.
//
// Every method must be called from the thread driving the render loop.
type Driver interface {
	CreateBuffer(size uint64, usage vk.BufferUsageFlags, class metadata.MemoryClass) (*metadata.AllocatedBuffer, error)
	DestroyBuffer(buffer *metadata.AllocatedBuffer)
	MapBuffer(buffer *metadata.AllocatedBuffer) ([]byte, error)
	UnmapBuffer(buffer *metadata.AllocatedBuffer)
	CreateImage(info metadata.ImageInfo) (*metadata.AllocatedImage, error)
	DestroyImage(image *metadata.AllocatedImage)
	// CreateImageView creates a 2D view spanning every mip level of the image.
	CreateImageView(image *metadata.AllocatedImage, aspect vk.ImageAspectFlags) (vk.ImageView, error)
	DestroyImageView(view vk.ImageView)

	FormatSupportsLinearBlit(format vk.Format) bool
	DepthFormat() vk.Format
	SurfaceSupport() (*VulkanSwapchainSupportInfo, error)

	CreateFence(signaled bool) (*VulkanFence, error)
	DestroyFence(fence *VulkanFence)
	WaitForFence(fence *VulkanFence, timeoutNs uint64) error
	ResetFence(fence *VulkanFence) error
	CreateSemaphore() (*VulkanSemaphore, error)
	DestroySemaphore(semaphore *VulkanSemaphore)
	DeviceWaitIdle() error

	CreateCommandPool(resetBuffers bool) (*VulkanCommandPool, error)
	DestroyCommandPool(pool *VulkanCommandPool)
	ResetCommandPool(pool *VulkanCommandPool) error
	AllocateCommandBuffer(pool *VulkanCommandPool) (*VulkanCommandBuffer, error)
	BeginCommandBuffer(commandBuffer *VulkanCommandBuffer, singleUse bool) (Commands, error)
	EndCommandBuffer(commandBuffer *VulkanCommandBuffer) error
	ResetCommandBuffer(commandBuffer *VulkanCommandBuffer) error
	Submit(info SubmitInfo) error

	CreateSwapchain(extent vk.Extent2D, prefs SurfacePreferences, support *VulkanSwapchainSupportInfo) (*VulkanSwapchain, error)
	DestroySwapchain(swapchain *VulkanSwapchain)
	AcquireNextImage(swapchain *VulkanSwapchain, signal *VulkanSemaphore, timeoutNs uint64) (uint32, SurfaceStatus, error)
	Present(swapchain *VulkanSwapchain, wait *VulkanSemaphore, imageIndex uint32) (SurfaceStatus, error)
	CreateRenderPass(colorFormat, depthFormat vk.Format) (*VulkanRenderpass, error)
	DestroyRenderPass(renderpass *VulkanRenderpass)
	CreateFramebuffer(renderpass *VulkanRenderpass, extent vk.Extent2D, attachments []vk.ImageView) (*VulkanFramebuffer, error)
	DestroyFramebuffer(framebuffer *VulkanFramebuffer)
}

// Commands is the recording surface handed to record callbacks while a command
// buffer is open.
type Commands interface {
	CopyBuffer(src, dst *metadata.AllocatedBuffer, srcOffset, dstOffset, size uint64)
	// CopyBufferToImage copies the whole of src into one mip level of dst, which
	// must be in transfer-dst layout.
	CopyBufferToImage(src *metadata.AllocatedBuffer, dst *metadata.AllocatedImage, level uint32)
	// ImageBarrier transitions levels [baseLevel, baseLevel+levelCount) from their
	// tracked layout to newLayout and records the new layout on the image.
	ImageBarrier(image *metadata.AllocatedImage, baseLevel, levelCount uint32, newLayout vk.ImageLayout) error
	// BlitImage scales one mip level into the next with linear filtering.
	BlitImage(image *metadata.AllocatedImage, blit MipBlit)
	BeginRenderPass(renderpass *VulkanRenderpass, framebuffer *VulkanFramebuffer, extent vk.Extent2D, clearColor [4]float32)
	EndRenderPass()
	SetViewport(extent vk.Extent2D)
	SetScissor(extent vk.Extent2D)
}

// SubmitInfo describes one queue submission of a single command buffer.
// Wait, Signal and Fence are optional.
type SubmitInfo struct {
	CommandBuffer *VulkanCommandBuffer
	Wait          *VulkanSemaphore
	WaitStage     vk.PipelineStageFlags
	Signal        *VulkanSemaphore
	Fence         *VulkanFence
}

// SurfaceStatus is the presentation outcome of an acquire or present call.
type SurfaceStatus int

const (
	SurfaceOptimal SurfaceStatus = iota
	// The image can still be used but the swapchain no longer matches the surface exactly.
	SurfaceSuboptimal
	// The swapchain can no longer be used and must be recreated.
	SurfaceOutOfDate
)

func (s SurfaceStatus) String() string {
	switch s {
	case SurfaceOptimal:
		return "optimal"
	case SurfaceSuboptimal:
		return "suboptimal"
	case SurfaceOutOfDate:
		return "out-of-date"
	default:
		return "unknown"
	}
}

// SurfacePreferences drive the swapchain format and present-mode selection.
type SurfacePreferences struct {
	Format        vk.SurfaceFormat
	PreferMailbox bool
}
