package vulkan

import (
	"fmt"
	stdmath "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/containers"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/math"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

// Window is what the surface lifecycle needs from the windowing layer.
type Window interface {
	// FramebufferSize returns the drawable size in pixels. Zero while minimized.
	FramebufferSize() (uint32, uint32)
	// WaitEvents blocks until at least one window event arrives.
	WaitEvents()
}

// ChooseSurfaceFormat returns preferred when the surface offers it and the first
// offered format otherwise.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat, preferred vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == preferred.Format && format.ColorSpace == preferred.ColorSpace {
			return format
		}
	}
	if len(formats) == 0 {
		return preferred
	}
	return formats[0]
}

// ChoosePresentMode picks mailbox when preferred and offered, and FIFO otherwise.
// FIFO is always supported.
func ChoosePresentMode(modes []vk.PresentMode, preferMailbox bool) vk.PresentMode {
	if preferMailbox {
		for _, mode := range modes {
			if mode == vk.PresentModeMailbox {
				return mode
			}
		}
	}
	return vk.PresentModeFifo
}

// ChooseSwapchainExtent honors the surface's current extent unless it is the
// 0xFFFFFFFF wildcard, in which case the window size is clamped to the allowed range.
func ChooseSwapchainExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != stdmath.MaxUint32 {
		return capabilities.CurrentExtent
	}
	minExtent := capabilities.MinImageExtent
	maxExtent := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  math.Clamp(width, minExtent.Width, maxExtent.Width),
		Height: math.Clamp(height, minExtent.Height, maxExtent.Height),
	}
}

// ChooseImageCount asks for one image above the minimum, capped by the maximum
// when there is one.
func ChooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

// SurfaceLifecycle owns everything whose lifetime is tied to the swapchain:
// the swapchain, views onto its images, the depth image and view, the render
// pass and one framebuffer per swapchain image. All of it lives in a surface
// scoped deletion queue that is flushed on every recreation.
type SurfaceLifecycle struct {
	driver Driver
	window Window
	prefs  SurfacePreferences
	queue  *containers.DeletionQueue

	Swapchain    *VulkanSwapchain
	Views        []vk.ImageView
	Depth        *metadata.AllocatedImage
	DepthView    vk.ImageView
	RenderPass   *VulkanRenderpass
	Framebuffers []*VulkanFramebuffer

	listeners  []func(extent vk.Extent2D) error
	generation uint64
}

// NewSurfaceLifecycle builds the initial swapchain, waiting out a minimized window.
func NewSurfaceLifecycle(driver Driver, window Window, prefs SurfacePreferences) (*SurfaceLifecycle, error) {
	s := &SurfaceLifecycle{
		driver: driver,
		window: window,
		prefs:  prefs,
		queue:  containers.NewDeletionQueue("surface"),
	}
	width, height := s.waitForExtent()
	if err := s.build(width, height); err != nil {
		s.queue.Flush()
		return nil, err
	}
	return s, nil
}

// OnRecreated registers a listener called with the new extent after every rebuild,
// for extent-dependent state such as viewports.
func (s *SurfaceLifecycle) OnRecreated(fn func(extent vk.Extent2D) error) {
	s.listeners = append(s.listeners, fn)
}

// Recreate rebuilds the surface resources for the current window size. While the
// window reports a zero extent it blocks on window events. On return no handle
// from the previous generation is alive.
func (s *SurfaceLifecycle) Recreate() error {
	width, height := s.waitForExtent()

	if err := s.driver.DeviceWaitIdle(); err != nil {
		return err
	}
	s.queue.Flush()

	if err := s.build(width, height); err != nil {
		return err
	}
	s.generation++
	core.LogInfo("Surface recreated at %dx%d (generation %d).", s.Extent().Width, s.Extent().Height, s.generation)

	for _, fn := range s.listeners {
		if err := fn(s.Extent()); err != nil {
			return err
		}
	}
	return nil
}

func (s *SurfaceLifecycle) waitForExtent() (uint32, uint32) {
	width, height := s.window.FramebufferSize()
	for width == 0 || height == 0 {
		s.window.WaitEvents()
		width, height = s.window.FramebufferSize()
	}
	return width, height
}

func (s *SurfaceLifecycle) build(width, height uint32) error {
	support, err := s.driver.SurfaceSupport()
	if err != nil {
		return err
	}
	extent := ChooseSwapchainExtent(support.Capabilities, width, height)

	swapchain, err := s.driver.CreateSwapchain(extent, s.prefs, support)
	if err != nil {
		return err
	}
	s.queue.Enqueue("swapchain", func() { s.driver.DestroySwapchain(swapchain) })
	s.Swapchain = swapchain

	s.Views = make([]vk.ImageView, len(swapchain.Images))
	for i, image := range swapchain.Images {
		view, err := s.driver.CreateImageView(image, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return err
		}
		s.queue.Enqueue(fmt.Sprintf("swapchain view %d", i), func() { s.driver.DestroyImageView(view) })
		s.Views[i] = view
	}

	depth, err := s.driver.CreateImage(metadata.ImageInfo{
		Width:     extent.Width,
		Height:    extent.Height,
		MipLevels: 1,
		Format:    s.driver.DepthFormat(),
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Class:     metadata.MemoryClassDeviceLocal,
	})
	if err != nil {
		return err
	}
	s.queue.Enqueue("depth image", func() { s.driver.DestroyImage(depth) })
	s.Depth = depth

	depthView, err := s.driver.CreateImageView(depth, vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		return err
	}
	s.queue.Enqueue("depth view", func() { s.driver.DestroyImageView(depthView) })
	s.DepthView = depthView

	renderpass, err := s.driver.CreateRenderPass(swapchain.ImageFormat.Format, depth.Format)
	if err != nil {
		return err
	}
	s.queue.Enqueue("render pass", func() { s.driver.DestroyRenderPass(renderpass) })
	s.RenderPass = renderpass

	s.Framebuffers = make([]*VulkanFramebuffer, len(s.Views))
	for i, view := range s.Views {
		framebuffer, err := s.driver.CreateFramebuffer(renderpass, extent, []vk.ImageView{view, depthView})
		if err != nil {
			return err
		}
		s.queue.Enqueue(fmt.Sprintf("framebuffer %d", i), func() { s.driver.DestroyFramebuffer(framebuffer) })
		s.Framebuffers[i] = framebuffer
	}
	return nil
}

// Extent returns the size of the current swapchain images.
func (s *SurfaceLifecycle) Extent() vk.Extent2D {
	return s.Swapchain.Extent
}

// Generation counts completed recreations.
func (s *SurfaceLifecycle) Generation() uint64 {
	return s.generation
}

// Destroy releases every surface-scoped resource. The device must be idle.
func (s *SurfaceLifecycle) Destroy() {
	s.queue.Flush()
	s.Swapchain = nil
	s.Views = nil
	s.Depth = nil
	s.DepthView = nil
	s.RenderPass = nil
	s.Framebuffers = nil
}
