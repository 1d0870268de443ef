package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Extent      vk.Extent2D
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

func (vc *VulkanContext) CreateFramebuffer(renderpass *VulkanRenderpass, extent vk.Extent2D, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	// Take a copy of the attachments.
	outFramebuffer := &VulkanFramebuffer{
		Extent:      extent,
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(vc.Device.LogicalDevice, &framebufferCreateInfo, vc.Allocator, &handle); res != vk.Success {
		return nil, vulkanError("vkCreateFramebuffer", res)
	}
	outFramebuffer.Handle = handle
	return outFramebuffer, nil
}

func (vc *VulkanContext) DestroyFramebuffer(framebuffer *VulkanFramebuffer) {
	if framebuffer.Handle != nil {
		vk.DestroyFramebuffer(vc.Device.LogicalDevice, framebuffer.Handle, vc.Allocator)
	}
	framebuffer.Handle = nil
	framebuffer.Attachments = nil
	framebuffer.Renderpass = nil
}
