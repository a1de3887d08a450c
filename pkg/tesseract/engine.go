// Package tesseract recognizes text lines with a local Tesseract install.
//
// Requires libtesseract and the traineddata files for every language used:
//
//	apt-get install tesseract-ocr libtesseract-dev
package tesseract

import (
	"context"
	"fmt"
	"image"
	"slices"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/text/language"

	"github.com/lehigh-university-libraries/textrecog/pkg/imaging"
	"github.com/lehigh-university-libraries/textrecog/pkg/providers"
	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

// Tesseract names scripts rather than regions for Chinese.
var chineseCodes = map[string]string{
	"chi_sim": "zh-Hans",
	"chi_tra": "zh-Hant",
}

// Engine implements recognition.Engine on gosseract.
type Engine struct {
	available func() ([]string, error)
}

// New creates a Tesseract engine. Settings are currently unused; the data
// directory comes from TESSDATA_PREFIX.
func New(settings providers.Settings) (*Engine, error) {
	return &Engine{available: gosseract.GetAvailableLanguages}, nil
}

func (e *Engine) Name() string {
	return "tesseract"
}

// SupportedLanguages lists the installed traineddata codes together with the
// BCP-47 tags they cover. Both levels run the same LSTM models.
func (e *Engine) SupportedLanguages(ctx context.Context, level recognition.Level) ([]string, error) {
	codes, err := e.available()
	if err != nil {
		return nil, &recognition.EngineError{Engine: e.Name(), Code: recognition.CodeUnknown, Message: "failed to list tessdata languages", Err: err}
	}
	return advertise(codes), nil
}

func advertise(codes []string) []string {
	var tags []string
	for _, code := range codes {
		if code == "osd" || code == "equ" {
			continue
		}
		tags = append(tags, code)
		if tag, ok := chineseCodes[code]; ok {
			tags = append(tags, tag)
			continue
		}
		if base, err := language.ParseBase(code); err == nil {
			tags = append(tags, base.String())
		}
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}

// tessCodes maps requested tags to traineddata codes, keeping order and
// dropping duplicates.
func tessCodes(tags []string) []string {
	var codes []string
	for _, t := range tags {
		code := tessCode(t)
		if code != "" && !slices.Contains(codes, code) {
			codes = append(codes, code)
		}
	}
	return codes
}

func tessCode(tag string) string {
	if _, ok := chineseCodes[tag]; ok {
		return tag
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		// Already a traineddata name such as "frk".
		return tag
	}
	base, _ := parsed.Base()
	if base.String() == "zh" {
		if script, _ := parsed.Script(); script.String() == "Hant" {
			return "chi_tra"
		}
		return "chi_sim"
	}
	return base.ISO3()
}

// Perform runs line-level recognition on the region in the background.
func (e *Engine) Perform(ctx context.Context, req *recognition.Request, done recognition.CompletionHandler) error {
	region, cropBox := imaging.Crop(req.Image.Image(), req.Region)
	data, err := imaging.EncodePNG(region)
	if err != nil {
		return err
	}
	b := region.Bounds()
	codes := tessCodes(req.Languages)

	go func() {
		boxes, err := e.recognize(data, codes)
		if err != nil {
			done(nil, err)
			return
		}
		done(linesToObservations(boxes, b.Dx(), b.Dy(), cropBox), nil)
	}()
	return nil
}

func (e *Engine) recognize(data []byte, codes []string) ([]gosseract.BoundingBox, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if len(codes) > 0 {
		if err := client.SetLanguage(codes...); err != nil {
			return nil, e.failure("failed to set language", err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, e.failure("failed to set image", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, e.failure("failed to extract lines", err)
	}
	return boxes, nil
}

func (e *Engine) failure(msg string, err error) error {
	return &recognition.EngineError{Engine: e.Name(), Code: recognition.CodeUnknown, Message: fmt.Sprintf("%s: %v", msg, err), Err: err}
}

// linesToObservations converts line boxes on a width x height crop of the
// region into observations on the full image. Tesseract confidences are
// percentages.
func linesToObservations(boxes []gosseract.BoundingBox, width, height int, region recognition.NormalizedBox) []recognition.RawObservation {
	observations := []recognition.RawObservation{}
	bounds := image.Rect(0, 0, width, height)
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		r := box.Box.Intersect(bounds)
		if r.Empty() {
			continue
		}
		observations = append(observations, recognition.RawObservation{
			Text:       text,
			Confidence: box.Confidence / 100,
			Box:        recognition.NormalizedFromPixels(r, width, height).Within(region),
		})
	}
	return observations
}
