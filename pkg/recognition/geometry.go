package recognition

import (
	"fmt"
	"image"
	"math"
)

// NormalizedBox is a rectangle in [0,1] coordinates relative to the image,
// with (X, Y) at its lower-left corner and the origin at the bottom-left.
type NormalizedBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// FullImage is the region of interest used when none is supplied.
var FullImage = NormalizedBox{X: 0, Y: 0, Width: 1, Height: 1}

// InUnitSquare reports whether the box has positive extent and lies entirely
// inside [0,1]x[0,1].
func (b NormalizedBox) InUnitSquare() bool {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if b.X < 0 || b.Y < 0 || b.Width <= 0 || b.Height <= 0 {
		return false
	}
	const eps = 1e-9
	return b.X+b.Width <= 1+eps && b.Y+b.Height <= 1+eps
}

// IsFullImage reports whether the box covers the whole image.
func (b NormalizedBox) IsFullImage() bool {
	return b == FullImage
}

// NormalizedFromPixels converts a top-left-origin pixel rectangle on a
// width x height image into a NormalizedBox.
func NormalizedFromPixels(r image.Rectangle, width, height int) NormalizedBox {
	if width <= 0 || height <= 0 {
		return NormalizedBox{}
	}
	w, h := float64(width), float64(height)
	return NormalizedBox{
		X:      float64(r.Min.X) / w,
		Y:      1 - float64(r.Max.Y)/h,
		Width:  float64(r.Dx()) / w,
		Height: float64(r.Dy()) / h,
	}
}

// Within maps a box expressed relative to region back into coordinates
// relative to the full image.
func (b NormalizedBox) Within(region NormalizedBox) NormalizedBox {
	return NormalizedBox{
		X:      region.X + b.X*region.Width,
		Y:      region.Y + b.Y*region.Height,
		Width:  b.Width * region.Width,
		Height: b.Height * region.Height,
	}
}

// PixelBox is a box in pixel units with a top-left origin. X is the left
// edge and Y is the flipped lower-left corner, (1 - y) * height.
type PixelBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect returns the pixel rectangle the box covers, with Min at the top-left.
func (p PixelBox) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(p.X)),
		int(math.Round(p.Y-p.Height)),
		int(math.Round(p.X+p.Width)),
		int(math.Round(p.Y)),
	)
}

func (p PixelBox) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g)", p.X, p.Y, p.Width, p.Height)
}

// Corners is the two-corner form of a PixelBox: (X1, Y1) is the flipped
// origin and (X2, Y2) = (X1 + width, Y1 - height).
type Corners struct {
	X1 float64 `json:"x1" yaml:"x1"`
	Y1 float64 `json:"y1" yaml:"y1"`
	X2 float64 `json:"x2" yaml:"x2"`
	Y2 float64 `json:"y2" yaml:"y2"`
}

func (c Corners) String() string {
	return fmt.Sprintf("(%g, %g, %g, %g)", c.X1, c.Y1, c.X2, c.Y2)
}

// Representation selects how normalized boxes are reported in pixels.
type Representation int

const (
	OriginAndExtent Representation = iota
	TwoCorners
)

// Normalizer converts engine boxes into pixel space.
type Normalizer struct {
	// RoundTo rounds normalized coordinates to this many decimals before
	// scaling. Nil leaves them untouched.
	RoundTo        *int
	Representation Representation
}

// ToPixels applies the normalization formula to box on a width x height image.
func (n Normalizer) ToPixels(box NormalizedBox, width, height int) PixelBox {
	if n.RoundTo != nil {
		box = NormalizedBox{
			X:      roundTo(box.X, *n.RoundTo),
			Y:      roundTo(box.Y, *n.RoundTo),
			Width:  roundTo(box.Width, *n.RoundTo),
			Height: roundTo(box.Height, *n.RoundTo),
		}
	}
	w, h := float64(width), float64(height)
	return PixelBox{
		X:      box.X * w,
		Y:      (1 - box.Y) * h,
		Width:  box.Width * w,
		Height: box.Height * h,
	}
}

// ToCorners returns the two-corner form of ToPixels.
func (n Normalizer) ToCorners(box NormalizedBox, width, height int) Corners {
	p := n.ToPixels(box, width, height)
	return Corners{X1: p.X, Y1: p.Y, X2: p.X + p.Width, Y2: p.Y - p.Height}
}

func roundTo(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
