package detector

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when the upload cannot be decoded as an image.
var ErrUnsupportedImage = errors.New("unsupported or corrupt image")

// maxRasterSide bounds the longest side of the raster handed to the QR reader.
const maxRasterSide = 2048

// Raster is an uploaded image normalized for scanning. Raw keeps the original
// bytes for collaborators that want the encoded file.
type Raster struct {
	Pixels *image.NRGBA
	Width  int
	Height int
	Format string
	Raw    []byte
}

// Normalize decodes PNG, JPEG, GIF, BMP or WebP data into an NRGBA pixel
// buffer, downscaling images whose longest side exceeds maxRasterSide.
func Normalize(data []byte) (*Raster, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}

	dw, dh := scaledSize(w, h, maxRasterSide)
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	if dw == w && dh == h {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	return &Raster{
		Pixels: dst,
		Width:  dw,
		Height: dh,
		Format: format,
		Raw:    data,
	}, nil
}

// scaledSize keeps the aspect ratio while fitting the longest side into limit.
func scaledSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
