// Package imageio loads and saves images as tightly packed RGBA8 pixels.
package imageio

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Image is a decoded image as interleaved 8-bit RGBA, row-major, with no
// padding between rows.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// Load decodes the image at path. EXIF orientation is applied so the pixels
// match what image viewers show.
func Load(path string) (*Image, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	img := FromImage(src)
	if img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("load image %s: empty image", path)
	}
	return img, nil
}

// FromImage converts any image to packed RGBA8.
func FromImage(src image.Image) *Image {
	nrgba := imaging.Clone(src)
	return &Image{
		Width:  nrgba.Rect.Dx(),
		Height: nrgba.Rect.Dy(),
		Pix:    nrgba.Pix,
	}
}

// NRGBA returns an image view of the pixels without copying.
func (img *Image) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    img.Pix,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
}

// Blank returns a zeroed image of the same size.
func (img *Image) Blank() *Image {
	return &Image{Width: img.Width, Height: img.Height, Pix: make([]byte, len(img.Pix))}
}

// Save encodes img to path; the format follows the file extension.
func Save(path string, img *Image) error {
	if err := imaging.Save(img.NRGBA(), path); err != nil {
		return fmt.Errorf("save image %s: %w", path, err)
	}
	return nil
}
