package tesseract

import (
	"image"
	"math"
	"slices"
	"testing"

	"github.com/otiai10/gosseract/v2"

	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

func TestTessCodes(t *testing.T) {
	tests := []struct {
		tags []string
		want []string
	}{
		{[]string{"en-US"}, []string{"eng"}},
		{[]string{"en-US", "en-GB", "de"}, []string{"eng", "deu"}},
		{[]string{"zh-Hans"}, []string{"chi_sim"}},
		{[]string{"zh-TW"}, []string{"chi_tra"}},
		{[]string{"chi_tra"}, []string{"chi_tra"}},
		{[]string{"frk"}, []string{"frk"}},
	}
	for _, tt := range tests {
		if got := tessCodes(tt.tags); !slices.Equal(got, tt.want) {
			t.Errorf("tessCodes(%v) = %v, want %v", tt.tags, got, tt.want)
		}
	}
}

func TestAdvertise(t *testing.T) {
	got := advertise([]string{"eng", "osd", "chi_sim", "deu"})
	for _, want := range []string{"eng", "en", "deu", "de", "chi_sim", "zh-Hans"} {
		if !slices.Contains(got, want) {
			t.Errorf("advertise() = %v, missing %q", got, want)
		}
	}
	if slices.Contains(got, "osd") {
		t.Errorf("advertise() should skip osd: %v", got)
	}
}

func TestLinesToObservations(t *testing.T) {
	boxes := []gosseract.BoundingBox{
		{Box: image.Rect(20, 10, 120, 30), Word: "Hello world\n", Confidence: 91},
		{Box: image.Rect(0, 0, 5, 5), Word: "  ", Confidence: 10},
	}
	region := recognition.NormalizedBox{X: 0, Y: 0.5, Width: 1, Height: 0.5}
	got := linesToObservations(boxes, 200, 100, region)
	if len(got) != 1 {
		t.Fatalf("got %d observations, want 1", len(got))
	}
	if got[0].Text != "Hello world" {
		t.Errorf("text = %q", got[0].Text)
	}
	if math.Abs(got[0].Confidence-0.91) > 1e-9 {
		t.Errorf("confidence = %v, want 0.91", got[0].Confidence)
	}
	// 0.7 of the region's height, offset by the region's bottom edge.
	want := recognition.NormalizedBox{X: 0.1, Y: 0.85, Width: 0.5, Height: 0.1}
	b := got[0].Box
	if math.Abs(b.X-want.X) > 1e-9 || math.Abs(b.Y-want.Y) > 1e-9 || math.Abs(b.Width-want.Width) > 1e-9 || math.Abs(b.Height-want.Height) > 1e-9 {
		t.Errorf("box = %+v, want %+v", b, want)
	}
}

func TestSupportedLanguages(t *testing.T) {
	e := &Engine{available: func() ([]string, error) { return []string{"eng"}, nil }}
	got, err := e.SupportedLanguages(t.Context(), recognition.LevelFast)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []string{"en", "eng"}) {
		t.Errorf("SupportedLanguages() = %v", got)
	}
}
