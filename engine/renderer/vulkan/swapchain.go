package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	// Images are owned by the swapchain and released along with it.
	Images []*metadata.AllocatedImage
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func (vc *VulkanContext) CreateSwapchain(extent vk.Extent2D, prefs SurfacePreferences, support *VulkanSwapchainSupportInfo) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{
		ImageFormat: ChooseSurfaceFormat(support.Formats, prefs.Format),
		PresentMode: ChoosePresentMode(support.PresentModes, prefs.PreferMailbox),
		Extent:      extent,
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vc.Surface,
		MinImageCount:    ChooseImageCount(support.Capabilities),
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
	}

	// Setup the queue family indices
	if vc.Device.GraphicsQueueIndex != vc.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			vc.Device.GraphicsQueueIndex,
			vc.Device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	err := vc.locks.SafeCall(SwapchainManagement, func() error {
		if res := vk.CreateSwapchain(vc.Device.LogicalDevice, &swapchainCreateInfo, vc.Allocator, &handle); res != vk.Success {
			return vulkanError("vkCreateSwapchainKHR", res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	swapchain.Handle = handle

	var imageCount uint32
	if res := vk.GetSwapchainImages(vc.Device.LogicalDevice, handle, &imageCount, nil); res != vk.Success {
		vk.DestroySwapchain(vc.Device.LogicalDevice, handle, vc.Allocator)
		return nil, vulkanError("vkGetSwapchainImagesKHR", res)
	}
	images := make([]vk.Image, imageCount)
	if res := vk.GetSwapchainImages(vc.Device.LogicalDevice, handle, &imageCount, images); res != vk.Success {
		vk.DestroySwapchain(vc.Device.LogicalDevice, handle, vc.Allocator)
		return nil, vulkanError("vkGetSwapchainImagesKHR", res)
	}

	info := metadata.ImageInfo{
		Width:     extent.Width,
		Height:    extent.Height,
		MipLevels: 1,
		Format:    swapchain.ImageFormat.Format,
		Usage:     swapchainCreateInfo.ImageUsage,
	}
	swapchain.Images = make([]*metadata.AllocatedImage, imageCount)
	for i, image := range images {
		swapchain.Images[i] = metadata.NewAllocatedImage(image, nil, info)
	}

	core.LogInfo("Swapchain created: %dx%d, %d images.", extent.Width, extent.Height, imageCount)
	return swapchain, nil
}

// DestroySwapchain releases the swapchain and with it the images it owns.
// Views onto those images must already be gone.
func (vc *VulkanContext) DestroySwapchain(swapchain *VulkanSwapchain) {
	_ = vc.locks.SafeCall(SwapchainManagement, func() error {
		vk.DestroySwapchain(vc.Device.LogicalDevice, swapchain.Handle, vc.Allocator)
		return nil
	})
	swapchain.Handle = nil
	swapchain.Images = nil
}

func (vc *VulkanContext) AcquireNextImage(swapchain *VulkanSwapchain, signal *VulkanSemaphore, timeoutNs uint64) (uint32, SurfaceStatus, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(vc.Device.LogicalDevice, swapchain.Handle, timeoutNs, signal.Handle, nil, &imageIndex)
	switch result {
	case vk.Success:
		return imageIndex, SurfaceOptimal, nil
	case vk.Suboptimal:
		return imageIndex, SurfaceSuboptimal, nil
	case vk.ErrorOutOfDate:
		return 0, SurfaceOutOfDate, nil
	default:
		return 0, SurfaceOutOfDate, vulkanError("vkAcquireNextImageKHR", result)
	}
}

func (vc *VulkanContext) Present(swapchain *VulkanSwapchain, wait *VulkanSemaphore, imageIndex uint32) (SurfaceStatus, error) {
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.Handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	var result vk.Result
	_ = vc.locks.SafeQueueCall(vc.Device.PresentQueueIndex, func() error {
		result = vk.QueuePresent(vc.Device.PresentQueue, &presentInfo)
		return nil
	})
	switch result {
	case vk.Success:
		return SurfaceOptimal, nil
	case vk.Suboptimal:
		return SurfaceSuboptimal, nil
	case vk.ErrorOutOfDate:
		return SurfaceOutOfDate, nil
	default:
		return SurfaceOutOfDate, vulkanError("vkQueuePresentKHR", result)
	}
}
