package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
)

// Default number of frames the CPU may record ahead of the GPU.
const DEFAULT_FRAMES_IN_FLIGHT = 2

// Fence waits block for at most this long. Practically infinite.
const DEFAULT_FENCE_TIMEOUT uint64 = math.MaxUint64

// Storage format of uploaded textures. Must support linear-filtered blits.
const TEXTURE_FORMAT = vk.FormatR8g8b8a8Srgb

// Usage every uploaded texture image is created with.
const TEXTURE_USAGE = vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit)

// Stage at which frame submissions wait for the acquired image.
const FRAME_WAIT_STAGE = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)

// DefaultSurfacePreferences prefers an sRGB BGRA8 back-buffer and mailbox presentation.
func DefaultSurfacePreferences() SurfacePreferences {
	return SurfacePreferences{
		Format: vk.SurfaceFormat{
			Format:     vk.FormatB8g8r8a8Srgb,
			ColorSpace: vk.ColorSpaceSrgbNonlinear,
		},
		PreferMailbox: true,
	}
}
