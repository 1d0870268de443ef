package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

func (vc *VulkanContext) CreateImage(info metadata.ImageInfo) (*metadata.AllocatedImage, error) {
	if info.Width == 0 || info.Height == 0 {
		return nil, core.Misusef("image of extent %dx%d requested", info.Width, info.Height)
	}
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     max(info.MipLevels, 1),
		ArrayLayers:   1,
		Format:        info.Format,
		Tiling:        info.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         info.Usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	var handle vk.Image
	if res := vk.CreateImage(vc.Device.LogicalDevice, &imageCreateInfo, vc.Allocator, &handle); res != vk.Success {
		return nil, vulkanError("vkCreateImage", res)
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(vc.Device.LogicalDevice, handle, &requirements)
	memory, err := vc.allocate(requirements, info.Class)
	if err != nil {
		vk.DestroyImage(vc.Device.LogicalDevice, handle, vc.Allocator)
		return nil, err
	}
	if res := vk.BindImageMemory(vc.Device.LogicalDevice, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(vc.Device.LogicalDevice, memory, vc.Allocator)
		vk.DestroyImage(vc.Device.LogicalDevice, handle, vc.Allocator)
		return nil, vulkanError("vkBindImageMemory", res)
	}
	return metadata.NewAllocatedImage(handle, memory, info), nil
}

func (vc *VulkanContext) DestroyImage(image *metadata.AllocatedImage) {
	image.MarkDestroyed()
	vk.DestroyImage(vc.Device.LogicalDevice, image.Handle, vc.Allocator)
	if image.Memory != nil {
		vk.FreeMemory(vc.Device.LogicalDevice, image.Memory, vc.Allocator)
	}
	image.Handle = nil
	image.Memory = nil
}

func (vc *VulkanContext) CreateImageView(image *metadata.AllocatedImage, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   image.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     image.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(vc.Device.LogicalDevice, &viewCreateInfo, vc.Allocator, &view); res != vk.Success {
		return nil, vulkanError("vkCreateImageView", res)
	}
	return view, nil
}

func (vc *VulkanContext) DestroyImageView(view vk.ImageView) {
	if view != nil {
		vk.DestroyImageView(vc.Device.LogicalDevice, view, vc.Allocator)
	}
}
