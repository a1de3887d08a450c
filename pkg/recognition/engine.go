package recognition

import (
	"context"
	"fmt"
	"image"
)

// Source is an image input: a FilePath or a PixelBuffer.
type Source interface {
	Describe() string
}

// FilePath is an image file on disk.
type FilePath string

func (p FilePath) Describe() string { return string(p) }

// ChannelOrder is the byte order of colour channels in a PixelBuffer.
type ChannelOrder int

const (
	// OrderBGR is the OpenCV default.
	OrderBGR ChannelOrder = iota
	OrderRGB
)

// PixelBuffer is an in-memory 8-bit image laid out row-major as
// height x width or height x width x channels.
type PixelBuffer struct {
	Shape []int
	Pix   []byte
	Order ChannelOrder
}

func (b PixelBuffer) Describe() string {
	return fmt.Sprintf("pixel buffer %v", b.Shape)
}

// Image is an acquired engine handle for one source image. Width and Height
// are the dimensions after orientation has been applied, which is the space
// engine coordinates are reported in.
type Image interface {
	Width() int
	Height() int
	// Image returns the upright pixels.
	Image() image.Image
	// PNG returns the upright pixels encoded as PNG.
	PNG() ([]byte, error)
	Orientation() Orientation
	// Path is the source file path, empty for pixel buffers.
	Path() string
	// Release returns the handle. Calling it more than once is a no-op.
	Release()
}

// ImageLoader acquires image handles.
type ImageLoader interface {
	Load(ctx context.Context, src Source, orientation Orientation) (Image, error)
}

// Request is everything an engine needs for one recognition.
type Request struct {
	Image      Image
	Languages  []string
	Level      Level
	UseCPUOnly bool
	// Region is always set; it is FullImage when the caller supplied none.
	Region NormalizedBox
}

// CompletionHandler receives the outcome of a Perform call.
type CompletionHandler func(observations []RawObservation, err error)

// Engine is an opaque text recognizer.
//
// Perform dispatches the request and returns an error only if dispatch
// itself failed, in which case done must not be called. Otherwise the engine
// calls done exactly once, from any goroutine. Observation boxes are
// relative to the full image, not to the region of interest, and an empty
// slice means no text was found.
type Engine interface {
	Name() string
	SupportedLanguages(ctx context.Context, level Level) ([]string, error)
	Perform(ctx context.Context, req *Request, done CompletionHandler) error
}
