// Package gvision recognizes text with the Google Cloud Vision API.
package gvision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lehigh-university-libraries/textrecog/internal/utils"
	"github.com/lehigh-university-libraries/textrecog/pkg/imaging"
	"github.com/lehigh-university-libraries/textrecog/pkg/providers"
	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

// Annotator is the subset of vision.ImageAnnotatorClient the engine calls.
type Annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// Languages the OCR models accept as hints.
var supportedLanguages = []string{
	"af", "ar", "as", "az", "be", "bg", "bn", "ca", "cs", "cy", "da", "de", "el", "en", "es", "et",
	"fa", "fi", "fil", "fr", "ga", "gu", "he", "hi", "hr", "hu", "hy", "id", "is", "it", "ja", "ka",
	"kk", "km", "kn", "ko", "ky", "lo", "lt", "lv", "mk", "ml", "mn", "mr", "ms", "my", "ne", "nl",
	"no", "pa", "pl", "pt", "ro", "ru", "sk", "sl", "sq", "sr", "sv", "sw", "ta", "te", "th", "tr",
	"uk", "ur", "uz", "vi", "yi", "zh",
}

// Engine implements recognition.Engine on Cloud Vision text detection.
type Engine struct {
	client  Annotator
	closer  func() error
	timeout time.Duration
}

// New connects to Cloud Vision with application default credentials.
func New(settings providers.Settings) (*Engine, error) {
	client, err := vision.NewImageAnnotatorClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", utils.MaskSensitiveError(err))
	}
	e := NewWithAnnotator(client, settings.Timeout)
	e.closer = client.Close
	return e, nil
}

// NewWithAnnotator builds an engine around an existing annotator.
func NewWithAnnotator(client Annotator, timeout time.Duration) *Engine {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Engine{client: client, timeout: timeout}
}

func (e *Engine) Name() string {
	return "google-vision"
}

// Close releases the underlying client connection.
func (e *Engine) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

func (e *Engine) SupportedLanguages(ctx context.Context, level recognition.Level) ([]string, error) {
	return append([]string(nil), supportedLanguages...), nil
}

// Perform sends the region to Cloud Vision. Accurate requests use document
// text detection, fast requests plain text detection.
func (e *Engine) Perform(ctx context.Context, req *recognition.Request, done recognition.CompletionHandler) error {
	region, cropBox := imaging.Crop(req.Image.Image(), req.Region)
	data, err := imaging.EncodePNG(region)
	if err != nil {
		return err
	}
	feature := visionpb.Feature_DOCUMENT_TEXT_DETECTION
	if req.Level == recognition.LevelFast {
		feature = visionpb.Feature_TEXT_DETECTION
	}
	batch := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:        &visionpb.Image{Content: data},
			Features:     []*visionpb.Feature{{Type: feature}},
			ImageContext: &visionpb.ImageContext{LanguageHints: req.Languages},
		}},
	}
	b := region.Bounds()

	go func() {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		resp, err := e.client.BatchAnnotateImages(ctx, batch)
		if err != nil {
			done(nil, e.rpcError(err))
			return
		}
		if len(resp.GetResponses()) == 0 {
			done([]recognition.RawObservation{}, nil)
			return
		}
		r := resp.GetResponses()[0]
		if st := r.GetError(); st != nil && st.GetCode() != 0 {
			done(nil, &recognition.EngineError{Engine: e.Name(), Code: int(st.GetCode()), Message: st.GetMessage()})
			return
		}
		observations := linesFromAnnotation(r.GetFullTextAnnotation(), b.Dx(), b.Dy())
		for i := range observations {
			observations[i].Box = observations[i].Box.Within(cropBox)
		}
		done(observations, nil)
	}()
	return nil
}

func (e *Engine) rpcError(err error) error {
	if st, ok := status.FromError(err); ok {
		return &recognition.EngineError{Engine: e.Name(), Code: int(st.Code()), Message: utils.MaskSensitiveData(st.Message()), Err: err}
	}
	code := recognition.CodeUnknown
	if errors.Is(err, context.DeadlineExceeded) {
		code = int(codes.DeadlineExceeded)
	}
	return &recognition.EngineError{Engine: e.Name(), Code: code, Message: utils.MaskSensitiveData(err.Error()), Err: err}
}

type lineBuilder struct {
	text  strings.Builder
	rect  image.Rectangle
	conf  float64
	words int
}

func (l *lineBuilder) addWord(w *visionpb.Word) {
	r := polyRect(w.GetBoundingBox())
	if l.words == 0 {
		l.rect = r
	} else {
		l.rect = l.rect.Union(r)
	}
	l.conf += float64(w.GetConfidence())
	l.words++
}

// linesFromAnnotation splits the annotation into lines at detected line
// breaks. Boxes are the union of the line's word boxes.
func linesFromAnnotation(ann *visionpb.TextAnnotation, width, height int) []recognition.RawObservation {
	observations := []recognition.RawObservation{}
	if ann == nil || width <= 0 || height <= 0 {
		return observations
	}

	var line lineBuilder
	flush := func() {
		text := strings.TrimSpace(line.text.String())
		if text != "" && line.words > 0 {
			observations = append(observations, recognition.RawObservation{
				Text:       text,
				Confidence: line.conf / float64(line.words),
				Box:        recognition.NormalizedFromPixels(line.rect.Intersect(image.Rect(0, 0, width, height)), width, height),
			})
		}
		line = lineBuilder{}
	}

	for _, page := range ann.GetPages() {
		for _, block := range page.GetBlocks() {
			for _, para := range block.GetParagraphs() {
				for _, word := range para.GetWords() {
					line.addWord(word)
					for _, sym := range word.GetSymbols() {
						line.text.WriteString(sym.GetText())
						switch sym.GetProperty().GetDetectedBreak().GetType() {
						case visionpb.TextAnnotation_DetectedBreak_SPACE, visionpb.TextAnnotation_DetectedBreak_SURE_SPACE:
							line.text.WriteByte(' ')
						case visionpb.TextAnnotation_DetectedBreak_HYPHEN:
							line.text.WriteByte('-')
							flush()
						case visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE, visionpb.TextAnnotation_DetectedBreak_LINE_BREAK:
							flush()
						}
					}
				}
				flush()
			}
		}
	}
	return observations
}

func polyRect(poly *visionpb.BoundingPoly) image.Rectangle {
	vs := poly.GetVertices()
	if len(vs) == 0 {
		return image.Rectangle{}
	}
	minX, minY := int32(math.MaxInt32), int32(math.MaxInt32)
	maxX, maxY := int32(math.MinInt32), int32(math.MinInt32)
	for _, v := range vs {
		minX, maxX = min(minX, v.GetX()), max(maxX, v.GetX())
		minY, maxY = min(minY, v.GetY()), max(maxY, v.GetY())
	}
	return image.Rect(int(minX), int(minY), int(maxX), int(maxY))
}
