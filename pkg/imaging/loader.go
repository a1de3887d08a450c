// Package imaging loads recognition sources into engine image handles.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"sync"

	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxHandles bounds concurrently held handles when none is configured.
const DefaultMaxHandles = 4

// Loader decodes sources and hands out image handles. At most MaxHandles
// handles are outstanding at once; Load blocks until one is released.
type Loader struct {
	sem *semaphore.Weighted
}

// NewLoader creates a Loader allowing maxHandles concurrent handles.
func NewLoader(maxHandles int) *Loader {
	if maxHandles <= 0 {
		maxHandles = DefaultMaxHandles
	}
	return &Loader{sem: semaphore.NewWeighted(int64(maxHandles))}
}

// Load decodes src, applies orientation and returns a handle that must be
// released by the caller.
func (l *Loader) Load(ctx context.Context, src recognition.Source, orientation recognition.Orientation) (recognition.Image, error) {
	var (
		img  image.Image
		path string
		err  error
	)
	switch s := src.(type) {
	case recognition.FilePath:
		path = string(s)
		img, err = decodeFile(path)
	case recognition.PixelBuffer:
		img, err = FromPixelBuffer(s)
	case *recognition.PixelBuffer:
		img, err = FromPixelBuffer(*s)
	default:
		err = &recognition.ImageLoadError{Source: fmt.Sprintf("%T", src), Err: errors.New("image can be a pixel buffer or a path to a file")}
	}
	if err != nil {
		return nil, err
	}

	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire image handle: %w", err)
	}

	upright := Orient(img, orientation)
	b := upright.Bounds()
	return &Handle{
		img:         upright,
		width:       b.Dx(),
		height:      b.Dy(),
		orientation: orientation,
		path:        path,
		release:     func() { l.sem.Release(1) },
	}, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &recognition.ImageLoadError{Source: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &recognition.ImageLoadError{Source: path, Err: err}
	}
	return img, nil
}

// Handle is an acquired, upright image.
type Handle struct {
	img         image.Image
	width       int
	height      int
	orientation recognition.Orientation
	path        string

	pngOnce sync.Once
	pngData []byte
	pngErr  error

	releaseOnce sync.Once
	release     func()
}

func (h *Handle) Width() int { return h.width }

func (h *Handle) Height() int { return h.height }

func (h *Handle) Image() image.Image { return h.img }

func (h *Handle) Orientation() recognition.Orientation { return h.orientation }

func (h *Handle) Path() string { return h.path }

// PNG encodes the upright image once and caches the bytes.
func (h *Handle) PNG() ([]byte, error) {
	h.pngOnce.Do(func() {
		h.pngData, h.pngErr = EncodePNG(h.img)
	})
	return h.pngData, h.pngErr
}

// Release returns the handle's slot to its Loader.
func (h *Handle) Release() {
	h.releaseOnce.Do(func() {
		if h.release != nil {
			h.release()
		}
	})
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Dimensions reads the size of the image at path without decoding its
// pixels, swapping width and height for transposed orientations.
func Dimensions(path string, orientation recognition.Orientation) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, &recognition.ImageLoadError{Source: path, Err: err}
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, &recognition.ImageLoadError{Source: path, Err: err}
	}
	if orientation.Transposed() {
		return cfg.Height, cfg.Width, nil
	}
	return cfg.Width, cfg.Height, nil
}
