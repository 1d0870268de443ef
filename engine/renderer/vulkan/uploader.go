package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/efvk/engine/containers"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/math"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

// TextureSource decodes the file at path into tightly packed RGBA8 pixels.
type TextureSource interface {
	LoadTexture(path string) (*metadata.Texture, error)
}

type UploadStats struct {
	Meshes        int
	Textures      int
	CacheHits     int
	BytesUploaded uint64
}

type cachedTexture struct {
	texture *metadata.GpuTexture
	ticket  containers.Ticket
}

// AssetUploader moves CPU-side meshes and textures into device-local memory
// through staging buffers and the upload context. Textures are cached by source
// path and live until evicted or until the main deletion queue is flushed, which
// also closes the uploader.
type AssetUploader struct {
	driver Driver
	upload *UploadContext
	queue  *containers.DeletionQueue
	source TextureSource

	textures map[string]*cachedTexture
	stats    UploadStats
	closed   bool
}

// NewAssetUploader fails with ErrCapabilityMissing when the device cannot
// linearly blit TEXTURE_FORMAT, since mip generation depends on it.
func NewAssetUploader(driver Driver, upload *UploadContext, queue *containers.DeletionQueue, source TextureSource) (*AssetUploader, error) {
	if !driver.FormatSupportsLinearBlit(TEXTURE_FORMAT) {
		err := errors.Wrap(core.ErrCapabilityMissing, "texture format does not support linear blitting")
		core.LogError("%s", err)
		return nil, err
	}
	au := &AssetUploader{
		driver:   driver,
		upload:   upload,
		queue:    queue,
		source:   source,
		textures: make(map[string]*cachedTexture),
	}
	// Runs after every texture enqueued later has been destroyed.
	queue.Enqueue("texture cache", au.close)
	return au, nil
}

func (au *AssetUploader) close() {
	au.textures = make(map[string]*cachedTexture)
	au.stats.Textures = 0
	au.closed = true
}

func (au *AssetUploader) checkOpen(what string) error {
	if au.closed {
		return core.Misusef("%s after the uploader's deletion queue was flushed", what)
	}
	return nil
}

// UploadMesh copies the mesh's vertices and indices into fresh device-local
// buffers and stores them on the mesh. Their teardown joins the main queue.
func (au *AssetUploader) UploadMesh(mesh *metadata.Mesh) error {
	if err := au.checkOpen("mesh upload"); err != nil {
		return err
	}
	if mesh.IsUploaded() {
		return core.Misusef("mesh %q uploaded twice", mesh.Name)
	}
	vertexBytes := mesh.VertexBytes()
	indexBytes := mesh.IndexBytes()
	if vertexBytes == 0 || indexBytes == 0 {
		return errors.Newf("mesh %q has no geometry (%d vertex bytes, %d index bytes)", mesh.Name, vertexBytes, indexBytes)
	}

	staging, err := au.stage(vertexBytes+indexBytes, func(data []byte) {
		copy(data[:vertexBytes], mesh.VertexData)
		copy(data[vertexBytes:], mesh.IndexData())
	})
	if err != nil {
		return err
	}
	defer au.driver.DestroyBuffer(staging)

	vertexBuffer, err := au.driver.CreateBuffer(vertexBytes,
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit), metadata.MemoryClassDeviceLocal)
	if err != nil {
		return err
	}
	indexBuffer, err := au.driver.CreateBuffer(indexBytes,
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit), metadata.MemoryClassDeviceLocal)
	if err != nil {
		au.driver.DestroyBuffer(vertexBuffer)
		return err
	}

	err = au.upload.ImmediateSubmit(func(cmd Commands) error {
		cmd.CopyBuffer(staging, vertexBuffer, 0, 0, vertexBytes)
		cmd.CopyBuffer(staging, indexBuffer, vertexBytes, 0, indexBytes)
		return nil
	})
	if err != nil {
		au.driver.DestroyBuffer(indexBuffer)
		au.driver.DestroyBuffer(vertexBuffer)
		return err
	}

	au.queue.Enqueue("mesh "+mesh.Name+" vertex buffer", func() { au.driver.DestroyBuffer(vertexBuffer) })
	au.queue.Enqueue("mesh "+mesh.Name+" index buffer", func() { au.driver.DestroyBuffer(indexBuffer) })
	mesh.VertexBuffer = vertexBuffer
	mesh.IndexBuffer = indexBuffer

	au.stats.Meshes++
	au.stats.BytesUploaded += vertexBytes + indexBytes
	core.LogDebug("Uploaded mesh %q (%s): %d vertices, %d indices.", mesh.Name, mesh.ID, mesh.VertexCount, len(mesh.Indices))
	return nil
}

// UploadTexture creates a sampled image with a full mip chain from texture and
// caches it under source. A source already in the cache is returned as is,
// without touching the GPU.
func (au *AssetUploader) UploadTexture(source string, texture *metadata.Texture) (*metadata.GpuTexture, error) {
	if err := au.checkOpen("texture upload"); err != nil {
		return nil, err
	}
	if cached, ok := au.textures[source]; ok {
		au.stats.CacheHits++
		return cached.texture, nil
	}
	if err := texture.Validate(); err != nil {
		return nil, err
	}

	staging, err := au.stage(texture.Size(), func(data []byte) {
		copy(data, texture.Pixels)
	})
	if err != nil {
		return nil, err
	}
	defer au.driver.DestroyBuffer(staging)

	levels := math.MipLevels(texture.Width, texture.Height)
	image, err := au.driver.CreateImage(metadata.ImageInfo{
		Width:     texture.Width,
		Height:    texture.Height,
		MipLevels: levels,
		Format:    TEXTURE_FORMAT,
		Tiling:    vk.ImageTilingOptimal,
		Usage:     TEXTURE_USAGE,
		Class:     metadata.MemoryClassDeviceLocal,
	})
	if err != nil {
		return nil, err
	}

	err = au.upload.ImmediateSubmit(func(cmd Commands) error {
		return recordTextureUpload(cmd, staging, image)
	})
	if err != nil {
		au.driver.DestroyImage(image)
		return nil, err
	}

	view, err := au.driver.CreateImageView(image, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		au.driver.DestroyImage(image)
		return nil, err
	}

	gpuTexture := &metadata.GpuTexture{
		ID:        uuid.New(),
		Source:    source,
		Image:     image,
		View:      view,
		MipLevels: levels,
	}
	ticket := au.queue.Enqueue("texture "+source, func() {
		au.driver.DestroyImageView(view)
		au.driver.DestroyImage(image)
	})
	au.textures[source] = &cachedTexture{texture: gpuTexture, ticket: ticket}

	au.stats.Textures++
	au.stats.BytesUploaded += texture.Size()
	core.LogDebug("Uploaded texture %q (%s): %dx%d, %d mip levels.", source, gpuTexture.ID, texture.Width, texture.Height, levels)
	return gpuTexture, nil
}

// recordTextureUpload copies staging into level 0 and fills the remaining levels
// by successive linear blits, leaving every level shader-readable.
func recordTextureUpload(cmd Commands, staging *metadata.AllocatedBuffer, image *metadata.AllocatedImage) error {
	if err := cmd.ImageBarrier(image, 0, image.MipLevels, vk.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}
	cmd.CopyBufferToImage(staging, image, 0)

	for _, blit := range MipBlitPlan(image.Width, image.Height, image.MipLevels) {
		if err := cmd.ImageBarrier(image, blit.SrcLevel, 1, vk.ImageLayoutTransferSrcOptimal); err != nil {
			return err
		}
		cmd.BlitImage(image, blit)
		if err := cmd.ImageBarrier(image, blit.SrcLevel, 1, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
			return err
		}
	}
	// The last level was only ever written.
	return cmd.ImageBarrier(image, image.MipLevels-1, 1, vk.ImageLayoutShaderReadOnlyOptimal)
}

// LoadTexture returns the cached texture for path, decoding and uploading it on
// a cache miss.
func (au *AssetUploader) LoadTexture(path string) (*metadata.GpuTexture, error) {
	if err := au.checkOpen("texture load"); err != nil {
		return nil, err
	}
	if cached, ok := au.textures[path]; ok {
		au.stats.CacheHits++
		return cached.texture, nil
	}
	if au.source == nil {
		return nil, core.Misusef("texture %q requested without a texture source", path)
	}
	texture, err := au.source.LoadTexture(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading texture %q", path)
	}
	return au.UploadTexture(path, texture)
}

// Texture looks up a resident texture by source path.
func (au *AssetUploader) Texture(path string) (*metadata.GpuTexture, bool) {
	cached, ok := au.textures[path]
	if !ok {
		return nil, false
	}
	return cached.texture, true
}

// EvictTexture releases a cached texture ahead of shutdown. The device is
// drained first since frames in flight may still sample it.
func (au *AssetUploader) EvictTexture(path string) error {
	cached, ok := au.textures[path]
	if !ok {
		return errors.Newf("texture %q is not resident", path)
	}
	if err := au.driver.DeviceWaitIdle(); err != nil {
		return err
	}
	if err := au.queue.Release(cached.ticket); err != nil {
		return err
	}
	delete(au.textures, path)
	au.stats.Textures--
	core.LogDebug("Evicted texture %q.", path)
	return nil
}

func (au *AssetUploader) Stats() UploadStats {
	return au.stats
}

// stage creates a host-visible transfer source of size bytes and fills it.
func (au *AssetUploader) stage(size uint64, fill func(data []byte)) (*metadata.AllocatedBuffer, error) {
	staging, err := au.driver.CreateBuffer(size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), metadata.MemoryClassHostUpload)
	if err != nil {
		return nil, err
	}
	data, err := au.driver.MapBuffer(staging)
	if err != nil {
		au.driver.DestroyBuffer(staging)
		return nil, err
	}
	fill(data)
	au.driver.UnmapBuffer(staging)
	return staging, nil
}
