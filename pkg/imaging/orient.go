package imaging

import (
	"image"
	"image/draw"
	"math"

	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

// Orient returns img transformed so that it displays upright, given the EXIF
// orientation it was captured with.
func Orient(img image.Image, o recognition.Orientation) image.Image {
	if o == recognition.OrientationUp || !o.Valid() {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dw, dh := w, h
	if o.Transposed() {
		dw, dh = h, w
	}
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := orientPoint(o, x, y, w, h)
			dst.Set(dx, dy, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// orientPoint maps source pixel (x, y) on a w x h image to its upright position.
func orientPoint(o recognition.Orientation, x, y, w, h int) (int, int) {
	switch o {
	case recognition.OrientationUpMirrored:
		return w - 1 - x, y
	case recognition.OrientationDown:
		return w - 1 - x, h - 1 - y
	case recognition.OrientationDownMirrored:
		return x, h - 1 - y
	case recognition.OrientationLeftMirrored:
		return y, x
	case recognition.OrientationRight:
		return h - 1 - y, x
	case recognition.OrientationRightMirrored:
		return h - 1 - y, w - 1 - x
	case recognition.OrientationLeft:
		return y, w - 1 - x
	}
	return x, y
}

// Crop returns the part of img covered by region, a normalized box with a
// bottom-left origin, widened to whole pixels. The second result is the
// normalized box of the pixels actually kept; boxes found on the crop map
// back to the full image through it. The full-image region returns img
// unchanged.
func Crop(img image.Image, region recognition.NormalizedBox) (image.Image, recognition.NormalizedBox) {
	if region.IsFullImage() {
		return img, recognition.FullImage
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	rect := image.Rect(
		b.Min.X+int(math.Floor(region.X*w)),
		b.Min.Y+int(math.Floor((1-region.Y-region.Height)*h)),
		b.Min.X+int(math.Ceil((region.X+region.Width)*w)),
		b.Min.Y+int(math.Ceil((1-region.Y)*h)),
	).Intersect(b)
	kept := recognition.NormalizedFromPixels(rect.Sub(b.Min), b.Dx(), b.Dy())

	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect), kept
	}
	dst := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst, kept
}
