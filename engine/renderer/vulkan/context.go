package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

// VulkanContext owns the instance, surface and logical device, and implements
// Driver on top of them.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	locks *VulkanLockPool
}

var _ Driver = (*VulkanContext)(nil)

// memoryPropertyFlags maps a memory class onto the required property flags.
func memoryPropertyFlags(class metadata.MemoryClass) vk.MemoryPropertyFlags {
	switch class {
	case metadata.MemoryClassHostUpload:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	case metadata.MemoryClassHostReadback:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit)
	default:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	memoryProperties := vc.Device.Memory

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// allocate binds fresh memory satisfying requirements and class.
func (vc *VulkanContext) allocate(requirements vk.MemoryRequirements, class metadata.MemoryClass) (vk.DeviceMemory, error) {
	requirements.Deref()
	index := vc.FindMemoryIndex(requirements.MemoryTypeBits, memoryPropertyFlags(class))
	if index == -1 {
		return nil, vulkanError("memory type lookup ("+class.String()+")", vk.ErrorOutOfDeviceMemory)
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(index),
	}
	var memory vk.DeviceMemory
	err := vc.locks.SafeCall(ResourceManagement, func() error {
		if res := vk.AllocateMemory(vc.Device.LogicalDevice, &allocateInfo, vc.Allocator, &memory); res != vk.Success {
			return vulkanError("vkAllocateMemory", res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return memory, nil
}

func (vc *VulkanContext) DeviceWaitIdle() error {
	if res := vk.DeviceWaitIdle(vc.Device.LogicalDevice); res != vk.Success {
		return vulkanError("vkDeviceWaitIdle", res)
	}
	return nil
}

func (vc *VulkanContext) DepthFormat() vk.Format {
	return vc.Device.DepthFormat
}

// FormatSupportsLinearBlit reports whether optimally tiled images of the format
// can be blitted with linear filtering.
func (vc *VulkanContext) FormatSupportsLinearBlit(format vk.Format) bool {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(vc.Device.PhysicalDevice, format, &properties)
	properties.Deref()
	need := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit | vk.FormatFeatureBlitSrcBit | vk.FormatFeatureBlitDstBit)
	return properties.OptimalTilingFeatures&need == need
}

func (vc *VulkanContext) SurfaceSupport() (*VulkanSwapchainSupportInfo, error) {
	return DeviceQuerySwapchainSupport(vc.Device.PhysicalDevice, vc.Surface)
}
