package metadata

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/efvk/engine/core"
)

/** @brief Where an allocation lives and who may touch it. */
type MemoryClass int

const (
	/** @brief Device-local memory, not visible to the host. */
	MemoryClassDeviceLocal MemoryClass = iota
	/** @brief Host-visible, coherent memory written by the CPU (staging, per-frame uniforms). */
	MemoryClassHostUpload
	/** @brief Host-visible, cached memory read back by the CPU. */
	MemoryClassHostReadback
)

func (mc MemoryClass) String() string {
	switch mc {
	case MemoryClassDeviceLocal:
		return "device-local"
	case MemoryClassHostUpload:
		return "host-upload"
	case MemoryClassHostReadback:
		return "host-readback"
	default:
		return "unknown"
	}
}

// HostVisible reports whether buffers of this class can be mapped.
func (mc MemoryClass) HostVisible() bool {
	return mc == MemoryClassHostUpload || mc == MemoryClassHostReadback
}

/**
 * @brief Owns one GPU buffer object and its memory allocation.
 * Destroyed exactly once, explicitly, by the driver that created it.
 */
type AllocatedBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	/** @brief The requested size in bytes. */
	Size  uint64
	Usage vk.BufferUsageFlags
	Class MemoryClass
	/** @brief Host view of the memory while mapped, nil otherwise. */
	Mapped []byte

	destroyed bool
}

func (b *AllocatedBuffer) IsDestroyed() bool {
	return b.destroyed
}

// MarkDestroyed flags the buffer as released. A second release is a programmer error.
func (b *AllocatedBuffer) MarkDestroyed() {
	if b.destroyed {
		panic(core.Misusef("buffer of %d bytes destroyed twice", b.Size))
	}
	b.destroyed = true
	b.Mapped = nil
}
