package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanCommandPool struct {
	Handle vk.CommandPool
	// Buffers allocated from the pool may be reset one at a time.
	ResetBuffers bool

	buffers []*VulkanCommandBuffer
}

// CreateCommandPool creates a pool on the graphics queue family.
func (vc *VulkanContext) CreateCommandPool(resetBuffers bool) (*VulkanCommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: vc.Device.GraphicsQueueIndex,
	}
	if resetBuffers {
		poolCreateInfo.Flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit)
	}
	var handle vk.CommandPool
	if res := vk.CreateCommandPool(vc.Device.LogicalDevice, &poolCreateInfo, vc.Allocator, &handle); res != vk.Success {
		return nil, vulkanError("vkCreateCommandPool", res)
	}
	return &VulkanCommandPool{Handle: handle, ResetBuffers: resetBuffers}, nil
}

// DestroyCommandPool frees the pool along with every buffer allocated from it.
func (vc *VulkanContext) DestroyCommandPool(pool *VulkanCommandPool) {
	if pool.Handle != nil {
		vk.DestroyCommandPool(vc.Device.LogicalDevice, pool.Handle, vc.Allocator)
		pool.Handle = nil
	}
	for _, cb := range pool.buffers {
		cb.Handle = nil
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	pool.buffers = nil
}

// ResetCommandPool returns every buffer allocated from the pool to the initial state.
func (vc *VulkanContext) ResetCommandPool(pool *VulkanCommandPool) error {
	if res := vk.ResetCommandPool(vc.Device.LogicalDevice, pool.Handle, 0); res != vk.Success {
		return vulkanError("vkResetCommandPool", res)
	}
	pool.MarkReset()
	return nil
}

// Register tracks a buffer allocated from the pool so pool resets reach it.
func (pool *VulkanCommandPool) Register(commandBuffer *VulkanCommandBuffer) {
	pool.buffers = append(pool.buffers, commandBuffer)
}

// MarkReset returns the state of every tracked buffer to ready.
func (pool *VulkanCommandPool) MarkReset() {
	for _, cb := range pool.buffers {
		cb.State = COMMAND_BUFFER_STATE_READY
	}
}
