package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
)

// SurfaceProvider is the windowing side of context creation.
type SurfaceProvider interface {
	InstanceProcAddress() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

type ContextOptions struct {
	ApplicationName string
	// Enables VK_LAYER_KHRONOS_validation and the debug report callback.
	Validation  bool
	DiscreteGPU bool
}

// NewVulkanContext creates the instance, surface and logical device.
// Anything created before a failure is torn down again.
func NewVulkanContext(opts ContextOptions, provider SurfaceProvider) (*VulkanContext, error) {
	procAddr := provider.InstanceProcAddress()
	if procAddr == nil {
		err := errors.Wrap(core.ErrCapabilityMissing, "GetInstanceProcAddress is nil")
		core.LogError("%s", err)
		return nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return nil, errors.Mark(err, core.ErrCapabilityMissing)
	}

	vc := &VulkanContext{
		Allocator: nil,
		Device:    &VulkanDevice{},
		locks:     NewVulkanLockPool(),
	}
	if err := vc.createInstance(opts, provider.RequiredInstanceExtensions()); err != nil {
		return nil, err
	}

	if opts.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
			vc.Destroy()
			return nil, vulkanError("vkCreateDebugReportCallbackEXT", res)
		}
		vc.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := provider.CreateSurface(vc.Instance)
	if err != nil {
		vc.Destroy()
		err = errors.Mark(errors.Wrap(err, "failed to create platform surface"), core.ErrSurfaceLost)
		core.LogError("%s", err)
		return nil, err
	}
	vc.Surface = surface
	core.LogDebug("Vulkan surface created.")

	requirements := &VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		SamplerAnisotropy:    true,
		DiscreteGPU:          opts.DiscreteGPU,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}
	if err := DeviceCreate(vc, requirements); err != nil {
		vc.Destroy()
		return nil, err
	}

	core.LogInfo("Vulkan context initialized successfully.")
	return vc, nil
}

func (vc *VulkanContext) createInstance(opts ContextOptions, platformExtensions []string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(opts.ApplicationName),
		PEngineName:        VulkanSafeString("efvk"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{vk.KhrSurfaceExtensionName}
	requiredExtensions = append(requiredExtensions, platformExtensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if opts.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	for _, name := range requiredExtensions {
		core.LogDebug("Required extension: %s", name)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers should only be enabled on non-release builds.
	var requiredLayers []string
	if opts.Validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredLayers = []string{"VK_LAYER_KHRONOS_validation"}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return vulkanError("vkEnumerateInstanceLayerProperties", res)
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return vulkanError("vkEnumerateInstanceLayerProperties", res)
		}

		for _, required := range requiredLayers {
			core.LogDebug("Searching for layer: %s...", required)
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				if required == cString(availableLayers[j].LayerName[:]) {
					found = true
					break
				}
			}
			if !found {
				err := errors.Wrapf(core.ErrCapabilityMissing, "required validation layer is missing: %s", required)
				core.LogError("%s", err)
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, vc.Allocator, &instance); res != vk.Success {
		return vulkanError("vkCreateInstance", res)
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, vc.Allocator)
		core.LogError("%s", err)
		return errors.Mark(err, core.ErrCapabilityMissing)
	}
	vc.Instance = instance
	core.LogInfo("Vulkan Instance created.")
	return nil
}

// Destroy tears down the device, surface and instance in reverse order of creation.
// Every object created from the device must already be destroyed.
func (vc *VulkanContext) Destroy() {
	if vc.Device != nil && vc.Device.LogicalDevice != nil {
		DeviceDestroy(vc)
	}
	if vc.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}
	if vc.debugMessenger != nil {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = nil
	}
	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
