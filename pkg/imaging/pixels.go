package imaging

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

// FromPixelBuffer converts a height x width (grey) or height x width x
// channels buffer into an image. Three-channel buffers are read in buf.Order;
// four-channel buffers carry alpha last.
func FromPixelBuffer(buf recognition.PixelBuffer) (image.Image, error) {
	desc := buf.Describe()
	if len(buf.Shape) != 2 && len(buf.Shape) != 3 {
		return nil, &recognition.ImageLoadError{Source: desc, Err: fmt.Errorf("expected a 2-D or 3-D pixel layout, got %d dimensions", len(buf.Shape))}
	}
	for _, d := range buf.Shape {
		if d <= 0 {
			return nil, &recognition.ImageLoadError{Source: desc, Err: errors.New("dimensions must be positive")}
		}
	}

	h, w, c := buf.Shape[0], buf.Shape[1], 1
	if len(buf.Shape) == 3 {
		c = buf.Shape[2]
	}
	if c != 1 && c != 3 && c != 4 {
		return nil, &recognition.UnsupportedFormatError{Channels: c}
	}
	if h > math.MaxInt32 || w > math.MaxInt32 || h > math.MaxInt/4/w {
		return nil, &recognition.ImageLoadError{Source: desc, Err: fmt.Errorf("%dx%d pixels is too large", w, h)}
	}
	if want := h * w * c; len(buf.Pix) != want {
		return nil, &recognition.ImageLoadError{Source: desc, Err: fmt.Errorf("expected %d bytes, got %d", want, len(buf.Pix))}
	}

	if c == 1 {
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, buf.Pix)
		return img, nil
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < h*w; i++ {
		src := buf.Pix[i*c : i*c+c]
		dst := img.Pix[i*4 : i*4+4]
		r, g, b := src[0], src[1], src[2]
		if buf.Order == recognition.OrderBGR {
			r, b = b, r
		}
		dst[0], dst[1], dst[2], dst[3] = r, g, b, 0xff
		if c == 4 {
			dst[3] = src[3]
		}
	}
	return img, nil
}
