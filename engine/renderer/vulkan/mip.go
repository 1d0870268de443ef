package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/math"
)

// MipBlit is one step of mip chain generation: level SrcLevel is scaled into DstLevel.
type MipBlit struct {
	SrcLevel  uint32
	DstLevel  uint32
	SrcExtent vk.Extent2D
	DstExtent vk.Extent2D
}

// MipBlitPlan lists the blits that fill levels 1..levels-1 of a width x height
// image from level 0. Each destination is the source halved per axis, never below 1.
func MipBlitPlan(width, height, levels uint32) []MipBlit {
	if levels < 2 {
		return nil
	}
	plan := make([]MipBlit, 0, levels-1)
	w, h := width, height
	for i := uint32(1); i < levels; i++ {
		nw, nh := math.HalveExtent(w, h)
		plan = append(plan, MipBlit{
			SrcLevel:  i - 1,
			DstLevel:  i,
			SrcExtent: vk.Extent2D{Width: w, Height: h},
			DstExtent: vk.Extent2D{Width: nw, Height: nh},
		})
		w, h = nw, nh
	}
	return plan
}
