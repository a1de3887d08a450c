// Package applevision drives the macOS Vision framework through a helper
// executable.
//
// The helper reads one JSON request on stdin and writes one JSON response on
// stdout:
//
//	request:  {"image": "<base64 PNG>", "languages": ["en-US"], "level": "accurate", "uses_cpu_only": false}
//	response: {"observations": [{"text": "...", "confidence": 0.9, "box": [x, y, w, h]}]}
//	          {"error": {"code": 9, "message": "..."}}
//
// Boxes are Vision's normalized, bottom-left origin rectangles on the
// submitted image. Invoked as `helper --supported-languages --level fast` it
// prints a JSON array of language tags.
package applevision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/lehigh-university-libraries/textrecog/pkg/imaging"
	"github.com/lehigh-university-libraries/textrecog/pkg/providers"
	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

// DefaultHelper is looked up on PATH when no helper is configured.
const DefaultHelper = "textrecog-vision-helper"

// Engine implements recognition.Engine with VNRecognizeTextRequest.
type Engine struct {
	helper string
}

// New resolves the helper executable.
func New(settings providers.Settings) (*Engine, error) {
	helper := settings.AppleVisionHelper
	if helper == "" {
		helper = DefaultHelper
	}
	path, err := exec.LookPath(helper)
	if err != nil {
		return nil, fmt.Errorf("apple vision helper %q not found (set APPLE_VISION_HELPER): %w", helper, err)
	}
	return &Engine{helper: path}, nil
}

func (e *Engine) Name() string {
	return "apple-vision"
}

type request struct {
	Image       []byte   `json:"image"`
	Languages   []string `json:"languages"`
	Level       string   `json:"level"`
	UsesCPUOnly bool     `json:"uses_cpu_only"`
}

type observation struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box"`
}

type response struct {
	Observations []observation `json:"observations"`
	Error        *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *Engine) SupportedLanguages(ctx context.Context, level recognition.Level) ([]string, error) {
	out, err := e.run(ctx, nil, "--supported-languages", "--level", level.String())
	if err != nil {
		return nil, err
	}
	var langs []string
	if err := json.Unmarshal(out, &langs); err != nil {
		return nil, e.engineError(recognition.CodeUnknown, fmt.Errorf("invalid language list from helper: %w", err))
	}
	return langs, nil
}

// Perform runs the helper on the region in the background.
func (e *Engine) Perform(ctx context.Context, req *recognition.Request, done recognition.CompletionHandler) error {
	region, cropBox := imaging.Crop(req.Image.Image(), req.Region)
	data, err := imaging.EncodePNG(region)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(request{
		Image:       data,
		Languages:   req.Languages,
		Level:       req.Level.String(),
		UsesCPUOnly: req.UseCPUOnly,
	})
	if err != nil {
		return err
	}

	go func() {
		observations, err := e.recognize(ctx, payload)
		if err != nil {
			done(nil, err)
			return
		}
		for i := range observations {
			observations[i].Box = observations[i].Box.Within(cropBox)
		}
		done(observations, nil)
	}()
	return nil
}

func (e *Engine) recognize(ctx context.Context, payload []byte) ([]recognition.RawObservation, error) {
	out, err := e.run(ctx, payload)
	if err != nil {
		return nil, err
	}
	var resp response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, e.engineError(recognition.CodeUnknown, fmt.Errorf("invalid response from helper: %w", err))
	}
	if resp.Error != nil {
		return nil, &recognition.EngineError{Engine: e.Name(), Code: resp.Error.Code, Message: resp.Error.Message}
	}

	observations := make([]recognition.RawObservation, 0, len(resp.Observations))
	for _, o := range resp.Observations {
		if len(o.Box) != 4 {
			return nil, e.engineError(recognition.CodeUnknown, fmt.Errorf("observation %q has %d box values, want 4", o.Text, len(o.Box)))
		}
		observations = append(observations, recognition.RawObservation{
			Text:       o.Text,
			Confidence: o.Confidence,
			Box:        recognition.NormalizedBox{X: o.Box[0], Y: o.Box[1], Width: o.Box[2], Height: o.Box[3]},
		})
	}
	return observations, nil
}

func (e *Engine) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.helper, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &recognition.EngineError{
				Engine:  e.Name(),
				Code:    exitErr.ExitCode(),
				Message: strings.TrimSpace(stderr.String()),
				Err:     err,
			}
		}
		return nil, e.engineError(recognition.CodeUnknown, err)
	}
	return out, nil
}

func (e *Engine) engineError(code int, err error) *recognition.EngineError {
	return &recognition.EngineError{Engine: e.Name(), Code: code, Message: err.Error(), Err: err}
}
