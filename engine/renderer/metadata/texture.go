package metadata

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
)

/** @brief The number of bytes per RGBA8 pixel. */
const TEXTURE_CHANNEL_COUNT = 4

/**
 * @brief Decoded CPU-side pixel data, tightly packed RGBA8.
 */
type Texture struct {
	/** @brief The source the pixels were decoded from. */
	Name string
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The raw texture data (pixels). */
	Pixels []uint8
}

// Size returns the byte size of the pixel data.
func (t *Texture) Size() uint64 {
	return uint64(t.Width) * uint64(t.Height) * TEXTURE_CHANNEL_COUNT
}

func (t *Texture) Validate() error {
	if t.Width == 0 || t.Height == 0 {
		return errors.Newf("texture %q has empty extent %dx%d", t.Name, t.Width, t.Height)
	}
	if uint64(len(t.Pixels)) != t.Size() {
		return errors.Newf("texture %q has %d bytes of pixels, want %d", t.Name, len(t.Pixels), t.Size())
	}
	return nil
}

/**
 * @brief A texture resident on the GPU: image, view spanning every mip level, level count.
 */
type GpuTexture struct {
	ID uuid.UUID
	/** @brief The source path this texture was uploaded from. Cache key. */
	Source    string
	Image     *AllocatedImage
	View      vk.ImageView
	MipLevels uint32
}
