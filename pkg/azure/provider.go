package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/textrecog/internal/utils"
	"github.com/lehigh-university-libraries/textrecog/pkg/imaging"
	"github.com/lehigh-university-libraries/textrecog/pkg/providers"
	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

// Languages accepted by the Read 3.2 API for printed text.
var supportedLanguages = []string{
	"af", "ast", "bi", "br", "ca", "ceb", "ch", "co", "crh", "cs", "csb", "da", "de", "en", "es", "et",
	"eu", "fi", "fil", "fj", "fr", "fur", "fy", "ga", "gd", "gil", "gl", "gv", "hni", "hsb", "ht", "hu",
	"ia", "id", "it", "iu", "ja", "jv", "kaa", "kac", "kea", "kha", "kl", "ko", "ku", "kw", "lb", "ms",
	"mww", "nap", "nl", "no", "oc", "pl", "pt", "quc", "rm", "sco", "sl", "sq", "sv", "sw", "tet", "tr",
	"tt", "uz", "vo", "wae", "yua", "za", "zh-Hans", "zh-Hant", "zu",
}

// Engine implements the Azure Computer Vision Read engine
type Engine struct {
	endpoint     string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
	maxPolls     int
}

// New creates a new Azure engine
func New(settings providers.Settings) (*Engine, error) {
	if settings.AzureEndpoint == "" || settings.AzureAPIKey == "" {
		return nil, fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}
	timeout := settings.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Engine{
		endpoint:     strings.TrimSuffix(settings.AzureEndpoint, "/"),
		apiKey:       settings.AzureAPIKey,
		client:       &http.Client{Timeout: timeout},
		pollInterval: time.Second,
		maxPolls:     30,
	}, nil
}

// Name returns the engine name
func (e *Engine) Name() string {
	return "azure"
}

// SupportedLanguages returns the Read API languages; the level does not change them.
func (e *Engine) SupportedLanguages(ctx context.Context, level recognition.Level) ([]string, error) {
	return append([]string(nil), supportedLanguages...), nil
}

// Perform submits the image to the Read API and polls for the result in the
// background, reporting it through done.
func (e *Engine) Perform(ctx context.Context, req *recognition.Request, done recognition.CompletionHandler) error {
	region, cropBox := imaging.Crop(req.Image.Image(), req.Region)
	data, err := imaging.EncodePNG(region)
	if err != nil {
		return err
	}

	go func() {
		observations, err := e.read(ctx, data, req.Languages)
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

type readOperation struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []readResult `json:"readResults"`
	} `json:"analyzeResult"`
}

type readResult struct {
	Page   int        `json:"page"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Unit   string     `json:"unit"`
	Lines  []readLine `json:"lines"`
}

type readLine struct {
	BoundingBox []float64 `json:"boundingBox"`
	Text        string    `json:"text"`
	Words       []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
}

func (e *Engine) read(ctx context.Context, imageData []byte, languages []string) ([]recognition.RawObservation, error) {
	// Azure Computer Vision Read API 3.2 URL (more widely supported)
	readURL := fmt.Sprintf("%s/vision/v3.2/read/analyze", e.endpoint)
	if len(languages) == 1 {
		readURL += "?language=" + url.QueryEscape(languages[0])
	}

	req, err := http.NewRequestWithContext(ctx, "POST", readURL, bytes.NewReader(imageData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", e.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, e.engineError(0, utils.MaskSensitiveError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, &recognition.EngineError{
			Engine:  e.Name(),
			Code:    resp.StatusCode,
			Message: utils.MaskSensitiveData(providers.TruncateBody(body)),
		}
	}

	// Get the operation URL from the Operation-Location header
	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return nil, e.engineError(0, errors.New("no operation location returned from Azure OCR"))
	}

	for attempts := 0; attempts < e.maxPolls; attempts++ {
		select {
		case <-ctx.Done():
			return nil, e.engineError(0, ctx.Err())
		case <-time.After(e.pollInterval):
		}

		op, status, err := e.poll(ctx, operationURL)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			slog.Debug("Azure OCR poll not ready", "status", status, "attempt", attempts+1)
			continue
		}

		switch op.Status {
		case "succeeded":
			return linesToObservations(op.AnalyzeResult.ReadResults), nil
		case "failed":
			return nil, e.engineError(0, errors.New("azure OCR analysis failed"))
		}
		// Continue polling if status is "running" or "notStarted"
	}

	return nil, e.engineError(0, errors.New("azure OCR operation timed out"))
}

func (e *Engine) poll(ctx context.Context, operationURL string) (readOperation, int, error) {
	var op readOperation
	req, err := http.NewRequestWithContext(ctx, "GET", operationURL, nil)
	if err != nil {
		return op, 0, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return op, 0, e.engineError(0, utils.MaskSensitiveError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return op, resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return op, resp.StatusCode, e.engineError(0, fmt.Errorf("invalid response format from Azure OCR: %w", err))
	}
	return op, resp.StatusCode, nil
}

func (e *Engine) engineError(code int, err error) *recognition.EngineError {
	if code == 0 {
		code = recognition.CodeUnknown
	}
	return &recognition.EngineError{Engine: e.Name(), Code: code, Message: err.Error(), Err: err}
}

// linesToObservations converts Read lines, whose boxes are four pixel corners
// on the submitted image, into normalized observations.
func linesToObservations(results []readResult) []recognition.RawObservation {
	var observations []recognition.RawObservation
	for _, page := range results {
		if page.Width <= 0 || page.Height <= 0 {
			continue
		}
		for _, line := range page.Lines {
			if len(line.BoundingBox) < 8 {
				continue
			}
			minX, minY := math.MaxFloat64, math.MaxFloat64
			maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
			for i := 0; i+1 < len(line.BoundingBox); i += 2 {
				x, y := line.BoundingBox[i], line.BoundingBox[i+1]
				minX, maxX = math.Min(minX, x), math.Max(maxX, x)
				minY, maxY = math.Min(minY, y), math.Max(maxY, y)
			}
			rect := image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))

			var conf float64
			for _, w := range line.Words {
				conf += w.Confidence
			}
			if len(line.Words) > 0 {
				conf /= float64(len(line.Words))
			}

			observations = append(observations, recognition.RawObservation{
				Text:       line.Text,
				Confidence: conf,
				Box:        recognition.NormalizedFromPixels(rect, int(page.Width), int(page.Height)),
			})
		}
	}
	return observations
}
