package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func (vc *VulkanContext) CreateFence(createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var handle vk.Fence
	if res := vk.CreateFence(vc.Device.LogicalDevice, &fenceCreateInfo, vc.Allocator, &handle); res != vk.Success {
		return nil, vulkanError("vkCreateFence", res)
	}
	fence.Handle = handle
	return fence, nil
}

func (vc *VulkanContext) DestroyFence(fence *VulkanFence) {
	if fence.Handle != nil {
		vk.DestroyFence(vc.Device.LogicalDevice, fence.Handle, vc.Allocator)
		fence.Handle = nil
	}
	fence.IsSignaled = false
}

// WaitForFence blocks until the fence is signaled. A fence already known to be
// signaled returns immediately. Timeouts are reported as errors.
func (vc *VulkanContext) WaitForFence(fence *VulkanFence, timeoutNs uint64) error {
	if fence.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(vc.Device.LogicalDevice, 1, []vk.Fence{fence.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		fence.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	}
	return vulkanError("vkWaitForFences", result)
}

func (vc *VulkanContext) ResetFence(fence *VulkanFence) error {
	if !fence.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(vc.Device.LogicalDevice, 1, []vk.Fence{fence.Handle}); res != vk.Success {
		return vulkanError("vkResetFences", res)
	}
	fence.IsSignaled = false
	return nil
}

type VulkanSemaphore struct {
	Handle vk.Semaphore
}

func (vc *VulkanContext) CreateSemaphore() (*VulkanSemaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var handle vk.Semaphore
	if res := vk.CreateSemaphore(vc.Device.LogicalDevice, &semaphoreCreateInfo, vc.Allocator, &handle); res != vk.Success {
		return nil, vulkanError("vkCreateSemaphore", res)
	}
	return &VulkanSemaphore{Handle: handle}, nil
}

func (vc *VulkanContext) DestroySemaphore(semaphore *VulkanSemaphore) {
	if semaphore.Handle != nil {
		vk.DestroySemaphore(vc.Device.LogicalDevice, semaphore.Handle, vc.Allocator)
		semaphore.Handle = nil
	}
}
