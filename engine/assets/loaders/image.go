package loaders

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/efvk/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MAX_IMAGE_DIMENSION matches the smallest maxImageDimension2D we accept on a device.
const MAX_IMAGE_DIMENSION = 16384

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImage reports whether path has an extension one of the registered decoders handles.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ImageLoader decodes image files into tightly packed, non-premultiplied RGBA8.
type ImageLoader struct {
	// Flip rows so the first row in memory is the bottom of the image.
	FlipY bool
}

func (il *ImageLoader) Load(path string) (*metadata.Texture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening image %s", path)
	}
	defer file.Close()
	return il.Decode(file, path)
}

func (il *ImageLoader) Decode(r io.Reader, name string) (*metadata.Texture, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %s", name)
	}
	bounds := img.Bounds()
	if bounds.Dx() > MAX_IMAGE_DIMENSION || bounds.Dy() > MAX_IMAGE_DIMENSION {
		return nil, errors.Newf("image %s is %dx%d, larger than %d", name, bounds.Dx(), bounds.Dy(), MAX_IMAGE_DIMENSION)
	}

	pixels := toNRGBA(img)
	if il.FlipY {
		flipRows(pixels)
	}
	texture := &metadata.Texture{
		Name:   name,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: pixels.Pix,
	}
	if err := texture.Validate(); err != nil {
		return nil, err
	}
	return texture, nil
}

// toNRGBA returns an NRGBA image anchored at the origin with stride 4*width.
func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if src, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) && src.Stride == 4*bounds.Dx() {
		return src
	}
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

func flipRows(img *image.NRGBA) {
	h := img.Rect.Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}
