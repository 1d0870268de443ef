package engine

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/efvk/engine/assets"
	"github.com/spaghettifunk/efvk/engine/core"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
)

type textureDecoder interface {
	Resolve(name string) (string, error)
	DecodeTextures(ctx context.Context, names []string, workers int) ([]*metadata.Texture, error)
}

type textureUploader interface {
	UploadTexture(source string, texture *metadata.Texture) (*metadata.GpuTexture, error)
}

// preloadTextures decodes names on up to workers goroutines, then uploads the
// results in order from the calling thread. Names the decoder cannot resolve
// are skipped. It returns how many textures were uploaded.
func preloadTextures(ctx context.Context, decoder textureDecoder, uploader textureUploader, names []string, workers int) (int, error) {
	present := make([]string, 0, len(names))
	for _, name := range names {
		if _, err := decoder.Resolve(name); err != nil {
			if errors.Is(err, assets.ErrAssetNotFound) {
				core.LogWarn("preload: texture %s not found, skipping", name)
				continue
			}
			return 0, err
		}
		present = append(present, name)
	}
	if len(present) == 0 {
		return 0, nil
	}

	start := time.Now()
	textures, err := decoder.DecodeTextures(ctx, present, workers)
	if err != nil {
		return 0, errors.Wrap(err, "preloading textures")
	}
	for i, texture := range textures {
		if _, err := uploader.UploadTexture(present[i], texture); err != nil {
			return i, errors.Wrapf(err, "preloading texture %s", present[i])
		}
	}
	core.LogInfo("Preloaded %d textures on %d workers in %s.", len(textures), workers, time.Since(start))
	return len(textures), nil
}
