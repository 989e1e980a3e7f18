package imageio

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromImagePacksRows(t *testing.T) {
	src := image.NewRGBA(image.Rect(2, 3, 5, 5))
	src.Set(2, 3, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	src.Set(4, 4, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	img := FromImage(src)
	require.Equal(t, 3, img.Width)
	require.Equal(t, 2, img.Height)
	require.Len(t, img.Pix, 3*2*4)

	assert.Equal(t, []byte{10, 20, 30, 255}, img.Pix[0:4])
	last := len(img.Pix) - 4
	assert.Equal(t, []byte{1, 2, 3, 255}, img.Pix[last:])
}

func TestSaveLoadPNG(t *testing.T) {
	img := &Image{Width: 4, Height: 1, Pix: []byte{
		255, 0, 0, 255,
		0, 255, 0, 255,
		0, 0, 255, 255,
		255, 255, 255, 255,
	}}
	path := filepath.Join(t.TempDir(), "strip.png")

	require.NoError(t, Save(path, img))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, img.Width, loaded.Width)
	assert.Equal(t, img.Height, loaded.Height)
	assert.Equal(t, img.Pix, loaded.Pix)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestBlank(t *testing.T) {
	img := &Image{Width: 2, Height: 2, Pix: make([]byte, 16)}
	img.Pix[0] = 9
	blank := img.Blank()
	assert.Equal(t, 2, blank.Width)
	assert.Len(t, blank.Pix, 16)
	assert.Equal(t, byte(0), blank.Pix[0])
}
