package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

func (vc *VulkanContext) CreateBuffer(size uint64, usage vk.BufferUsageFlags, class metadata.MemoryClass) (*metadata.AllocatedBuffer, error) {
	if size == 0 {
		return nil, core.Misusef("buffer of zero bytes requested")
	}
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(vc.Device.LogicalDevice, &bufferInfo, vc.Allocator, &handle); res != vk.Success {
		return nil, vulkanError("vkCreateBuffer", res)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vc.Device.LogicalDevice, handle, &requirements)
	memory, err := vc.allocate(requirements, class)
	if err != nil {
		vk.DestroyBuffer(vc.Device.LogicalDevice, handle, vc.Allocator)
		return nil, err
	}
	if res := vk.BindBufferMemory(vc.Device.LogicalDevice, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(vc.Device.LogicalDevice, memory, vc.Allocator)
		vk.DestroyBuffer(vc.Device.LogicalDevice, handle, vc.Allocator)
		return nil, vulkanError("vkBindBufferMemory", res)
	}

	return &metadata.AllocatedBuffer{
		Handle: handle,
		Memory: memory,
		Size:   size,
		Usage:  usage,
		Class:  class,
	}, nil
}

func (vc *VulkanContext) DestroyBuffer(buffer *metadata.AllocatedBuffer) {
	if buffer.Mapped != nil {
		vc.UnmapBuffer(buffer)
	}
	buffer.MarkDestroyed()
	vk.DestroyBuffer(vc.Device.LogicalDevice, buffer.Handle, vc.Allocator)
	vk.FreeMemory(vc.Device.LogicalDevice, buffer.Memory, vc.Allocator)
	buffer.Handle = nil
	buffer.Memory = nil
}

// MapBuffer maps the whole buffer. Host-coherent classes need no explicit flush.
func (vc *VulkanContext) MapBuffer(buffer *metadata.AllocatedBuffer) ([]byte, error) {
	if !buffer.Class.HostVisible() {
		return nil, core.Misusef("map of %s buffer", buffer.Class)
	}
	if buffer.Mapped != nil {
		return buffer.Mapped, nil
	}
	var data unsafe.Pointer
	if res := vk.MapMemory(vc.Device.LogicalDevice, buffer.Memory, 0, vk.DeviceSize(buffer.Size), 0, &data); res != vk.Success {
		return nil, vulkanError("vkMapMemory", res)
	}
	buffer.Mapped = unsafe.Slice((*byte)(data), buffer.Size)
	return buffer.Mapped, nil
}

func (vc *VulkanContext) UnmapBuffer(buffer *metadata.AllocatedBuffer) {
	if buffer.Mapped == nil {
		return
	}
	vk.UnmapMemory(vc.Device.LogicalDevice, buffer.Memory)
	buffer.Mapped = nil
}
