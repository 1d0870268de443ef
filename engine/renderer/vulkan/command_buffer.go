package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s VulkanCommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_IN_RENDER_PASS:
		return "in-render-pass"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording-ended"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "submitted"
	default:
		return "not-allocated"
	}
}

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func (vc *VulkanContext) AllocateCommandBuffer(pool *VulkanCommandPool) (*VulkanCommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool.Handle,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(vc.Device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
		return nil, vulkanError("vkAllocateCommandBuffers", res)
	}
	cb := &VulkanCommandBuffer{
		Handle: handles[0],
		State:  COMMAND_BUFFER_STATE_READY,
	}
	pool.Register(cb)
	return cb, nil
}

// BeginCommandBuffer opens the buffer for recording and returns the recorder.
func (vc *VulkanContext) BeginCommandBuffer(commandBuffer *VulkanCommandBuffer, singleUse bool) (Commands, error) {
	if commandBuffer.State != COMMAND_BUFFER_STATE_READY {
		return nil, core.Misusef("begin of command buffer in state %s", commandBuffer.State)
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if singleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if res := vk.BeginCommandBuffer(commandBuffer.Handle, &beginInfo); res != vk.Success {
		return nil, vulkanError("vkBeginCommandBuffer", res)
	}
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
	return commandBuffer, nil
}

func (vc *VulkanContext) EndCommandBuffer(commandBuffer *VulkanCommandBuffer) error {
	if commandBuffer.State == COMMAND_BUFFER_STATE_IN_RENDER_PASS {
		return core.Misusef("end of command buffer inside a render pass")
	}
	if res := vk.EndCommandBuffer(commandBuffer.Handle); res != vk.Success {
		return vulkanError("vkEndCommandBuffer", res)
	}
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (vc *VulkanContext) ResetCommandBuffer(commandBuffer *VulkanCommandBuffer) error {
	if res := vk.ResetCommandBuffer(commandBuffer.Handle, 0); res != vk.Success {
		return vulkanError("vkResetCommandBuffer", res)
	}
	commandBuffer.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (vc *VulkanContext) Submit(info SubmitInfo) error {
	if info.CommandBuffer.State != COMMAND_BUFFER_STATE_RECORDING_ENDED {
		return core.Misusef("submit of command buffer in state %s", info.CommandBuffer.State)
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{info.CommandBuffer.Handle},
	}
	if info.Wait != nil {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{info.Wait.Handle}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{info.WaitStage}
	}
	if info.Signal != nil {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{info.Signal.Handle}
	}
	var fence vk.Fence
	if info.Fence != nil {
		fence = info.Fence.Handle
	}

	err := vc.locks.SafeQueueCall(vc.Device.GraphicsQueueIndex, func() error {
		if res := vk.QueueSubmit(vc.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence); res != vk.Success {
			return vulkanError("vkQueueSubmit", res)
		}
		return nil
	})
	if err != nil {
		return err
	}
	info.CommandBuffer.State = COMMAND_BUFFER_STATE_SUBMITTED
	if info.Fence != nil {
		info.Fence.IsSignaled = false
	}
	return nil
}

var _ Commands = (*VulkanCommandBuffer)(nil)

func (cb *VulkanCommandBuffer) CopyBuffer(src, dst *metadata.AllocatedBuffer, srcOffset, dstOffset, size uint64) {
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(cb.Handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{region})
}

func (cb *VulkanCommandBuffer) CopyBufferToImage(src *metadata.AllocatedBuffer, dst *metadata.AllocatedImage, level uint32) {
	extent := dst.MipExtent(level)
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       level,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cb.Handle, src.Handle, dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (cb *VulkanCommandBuffer) ImageBarrier(image *metadata.AllocatedImage, baseLevel, levelCount uint32, newLayout vk.ImageLayout) error {
	oldLayout, err := image.Transition(baseLevel, levelCount, newLayout)
	if err != nil {
		return err
	}
	scope := barrierMasks(oldLayout, newLayout)
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       scope.SrcAccess,
		DstAccessMask:       scope.DstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFor(image.Format),
			BaseMipLevel:   baseLevel,
			LevelCount:     levelCount,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdPipelineBarrier(cb.Handle, scope.SrcStage, scope.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

func (cb *VulkanCommandBuffer) BlitImage(image *metadata.AllocatedImage, blit MipBlit) {
	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       blit.SrcLevel,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		SrcOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(blit.SrcExtent.Width), Y: int32(blit.SrcExtent.Height), Z: 1},
		},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       blit.DstLevel,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		DstOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(blit.DstExtent.Width), Y: int32(blit.DstExtent.Height), Z: 1},
		},
	}
	vk.CmdBlitImage(cb.Handle,
		image.Handle, vk.ImageLayoutTransferSrcOptimal,
		image.Handle, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{region}, vk.FilterLinear)
}

func (cb *VulkanCommandBuffer) BeginRenderPass(renderpass *VulkanRenderpass, framebuffer *VulkanFramebuffer, extent vk.Extent2D, clearColor [4]float32) {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(clearColor[:])
	clearValues[1].SetDepthStencil(renderpass.Depth, renderpass.Stencil)

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderpass.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cb.Handle, &beginInfo, vk.SubpassContentsInline)
	cb.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (cb *VulkanCommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(cb.Handle)
	cb.State = COMMAND_BUFFER_STATE_RECORDING
}

func (cb *VulkanCommandBuffer) SetViewport(extent vk.Extent2D) {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
}

func (cb *VulkanCommandBuffer) SetScissor(extent vk.Extent2D) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})
}
