package metadata

import (
	"unsafe"

	"github.com/google/uuid"
)

/**
 * @brief CPU-side geometry plus the GPU vertex/index buffers it is uploaded to.
 */
type Mesh struct {
	ID   uuid.UUID
	Name string
	/** @brief Raw vertex bytes, VertexCount * VertexStride long. */
	VertexData   []byte
	VertexStride uint32
	VertexCount  uint32
	Indices      []uint32

	/** @brief Populated by the upload. */
	VertexBuffer *AllocatedBuffer
	IndexBuffer  *AllocatedBuffer

	/** @brief Texture bound for this mesh's draws, if any. */
	Texture *GpuTexture
}

// NewMesh copies the vertex array into a byte slice using V's in-memory layout.
// V must not contain pointers.
func NewMesh[V any](name string, vertices []V, indices []uint32) *Mesh {
	var zero V
	stride := uint32(unsafe.Sizeof(zero))
	data := make([]byte, len(vertices)*int(stride))
	if len(vertices) > 0 {
		copy(data, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(data)))
	}
	idx := make([]uint32, len(indices))
	copy(idx, indices)
	return &Mesh{
		ID:           uuid.New(),
		Name:         name,
		VertexData:   data,
		VertexStride: stride,
		VertexCount:  uint32(len(vertices)),
		Indices:      idx,
	}
}

func (m *Mesh) VertexBytes() uint64 {
	return uint64(len(m.VertexData))
}

func (m *Mesh) IndexBytes() uint64 {
	return uint64(len(m.Indices)) * uint64(unsafe.Sizeof(uint32(0)))
}

// IndexData returns the index array as raw bytes, without copying.
func (m *Mesh) IndexData() []byte {
	if len(m.Indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Indices[0])), m.IndexBytes())
}

func (m *Mesh) IsUploaded() bool {
	return m.VertexBuffer != nil && m.IndexBuffer != nil
}
