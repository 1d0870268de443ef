package metadata

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/math"
)

/** @brief Parameters used when creating an image. */
type ImageInfo struct {
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    vk.Format
	Tiling    vk.ImageTiling
	Usage     vk.ImageUsageFlags
	Class     MemoryClass
}

/**
 * @brief Owns one GPU image and its memory allocation, plus the layout each
 * mip level is currently in. Every barrier updates the tracked layout in the
 * same call that records it.
 */
type AllocatedImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	Format vk.Format
	Width  uint32
	Height uint32
	Usage  vk.ImageUsageFlags
	/** @brief The number of mip levels the image was created with. */
	MipLevels uint32

	layouts   []vk.ImageLayout
	destroyed bool
}

// NewAllocatedImage wraps freshly created image handles. All levels start undefined.
func NewAllocatedImage(handle vk.Image, memory vk.DeviceMemory, info ImageInfo) *AllocatedImage {
	levels := max(info.MipLevels, 1)
	layouts := make([]vk.ImageLayout, levels)
	for i := range layouts {
		layouts[i] = vk.ImageLayoutUndefined
	}
	return &AllocatedImage{
		Handle:    handle,
		Memory:    memory,
		Format:    info.Format,
		Width:     info.Width,
		Height:    info.Height,
		Usage:     info.Usage,
		MipLevels: levels,
		layouts:   layouts,
	}
}

// Layout returns the tracked layout of a single mip level.
func (img *AllocatedImage) Layout(level uint32) vk.ImageLayout {
	return img.layouts[level]
}

// UniformLayout returns the layout shared by levels [base, base+count), or false
// when the range is out of bounds or the levels disagree.
func (img *AllocatedImage) UniformLayout(base, count uint32) (vk.ImageLayout, bool) {
	if count == 0 || base+count > img.MipLevels {
		return vk.ImageLayoutUndefined, false
	}
	layout := img.layouts[base]
	for i := base + 1; i < base+count; i++ {
		if img.layouts[i] != layout {
			return vk.ImageLayoutUndefined, false
		}
	}
	return layout, true
}

// Transition moves levels [base, base+count) to newLayout and returns the layout
// they were in. The range must currently share one layout.
func (img *AllocatedImage) Transition(base, count uint32, newLayout vk.ImageLayout) (vk.ImageLayout, error) {
	if img.destroyed {
		return vk.ImageLayoutUndefined, core.Misusef("transition of destroyed image")
	}
	old, ok := img.UniformLayout(base, count)
	if !ok {
		return vk.ImageLayoutUndefined, core.Misusef("image levels [%d,%d) of %d have no common layout", base, base+count, img.MipLevels)
	}
	for i := base; i < base+count; i++ {
		img.layouts[i] = newLayout
	}
	return old, nil
}

// MipExtent returns the size of one mip level.
func (img *AllocatedImage) MipExtent(level uint32) vk.Extent2D {
	w, h := math.MipExtent(img.Width, img.Height, level)
	return vk.Extent2D{Width: w, Height: h}
}

func (img *AllocatedImage) IsDestroyed() bool {
	return img.destroyed
}

// MarkDestroyed flags the image as released. A second release is a programmer error.
func (img *AllocatedImage) MarkDestroyed() {
	if img.destroyed {
		panic(core.Misusef("image %dx%d destroyed twice", img.Width, img.Height))
	}
	img.destroyed = true
}

func (img *AllocatedImage) String() string {
	return fmt.Sprintf("image %dx%d (%d levels)", img.Width, img.Height, img.MipLevels)
}
