package display

import (
	"fmt"
	"image"
)

// Region is one quadrant of the comparison window.
type Region int

const (
	UL Region = iota // upper left
	UR               // upper right
	LL               // lower left
	LR               // lower right
)

func (r Region) String() string {
	switch r {
	case UL:
		return "UL"
	case UR:
		return "UR"
	case LL:
		return "LL"
	case LR:
		return "LR"
	default:
		return fmt.Sprintf("Region(%d)", int(r))
	}
}

// DefaultLabelHeight is the height of the caption strip under each image.
const DefaultLabelHeight = 20

// Layout arranges four equally sized images in a 2x2 grid, each with a
// caption strip underneath.
type Layout struct {
	ImageWidth   int
	ImageHeight  int
	LabelHeight  int
	WindowWidth  int
	WindowHeight int
}

// Setup computes the layout for images of the given size.
func Setup(width, height int) Layout {
	return SetupWithLabel(width, height, DefaultLabelHeight)
}

// SetupWithLabel is Setup with a custom caption height.
func SetupWithLabel(width, height, labelHeight int) Layout {
	if labelHeight < 0 {
		labelHeight = 0
	}
	return Layout{
		ImageWidth:   width,
		ImageHeight:  height,
		LabelHeight:  labelHeight,
		WindowWidth:  2 * width,
		WindowHeight: 2 * (height + labelHeight),
	}
}

// Origin returns the top-left corner of the region's image.
func (l Layout) Origin(r Region) image.Point {
	col, row := int(r)%2, int(r)/2
	return image.Pt(col*l.ImageWidth, row*(l.ImageHeight+l.LabelHeight))
}

// ImageBounds returns the rectangle the region's image occupies.
func (l Layout) ImageBounds(r Region) image.Rectangle {
	o := l.Origin(r)
	return image.Rect(o.X, o.Y, o.X+l.ImageWidth, o.Y+l.ImageHeight)
}

// LabelBounds returns the caption strip under the region's image.
func (l Layout) LabelBounds(r Region) image.Rectangle {
	b := l.ImageBounds(r)
	return image.Rect(b.Min.X, b.Max.Y, b.Max.X, b.Max.Y+l.LabelHeight)
}

// Window returns the bounds of the whole window.
func (l Layout) Window() image.Rectangle {
	return image.Rect(0, 0, l.WindowWidth, l.WindowHeight)
}
