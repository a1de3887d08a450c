package recognition

import (
	"image"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalizerToPixels(t *testing.T) {
	two := 2
	tests := []struct {
		name     string
		n        Normalizer
		box      NormalizedBox
		width    int
		height   int
		expected PixelBox
	}{
		{
			name:     "quarter box on 200x100",
			box:      NormalizedBox{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5},
			width:    200,
			height:   100,
			expected: PixelBox{X: 50, Y: 75, Width: 100, Height: 50},
		},
		{
			name:     "full image",
			box:      FullImage,
			width:    640,
			height:   480,
			expected: PixelBox{X: 0, Y: 480, Width: 640, Height: 480},
		},
		{
			name:     "no rounding keeps precision",
			box:      NormalizedBox{X: 0.123456, Y: 0.5, Width: 0.1, Height: 0.1},
			width:    1000,
			height:   1000,
			expected: PixelBox{X: 123.456, Y: 500, Width: 100, Height: 100},
		},
		{
			name:     "rounding applies before scaling",
			n:        Normalizer{RoundTo: &two},
			box:      NormalizedBox{X: 0.123456, Y: 0.5, Width: 0.1, Height: 0.1},
			width:    1000,
			height:   1000,
			expected: PixelBox{X: 120, Y: 500, Width: 100, Height: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.n.ToPixels(tt.box, tt.width, tt.height)
			if !almostEqual(got.X, tt.expected.X) || !almostEqual(got.Y, tt.expected.Y) ||
				!almostEqual(got.Width, tt.expected.Width) || !almostEqual(got.Height, tt.expected.Height) {
				t.Errorf("ToPixels() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestNormalizerToCorners(t *testing.T) {
	n := Normalizer{Representation: TwoCorners}
	got := n.ToCorners(NormalizedBox{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}, 200, 100)
	want := Corners{X1: 50, Y1: 75, X2: 150, Y2: 25}
	if got != want {
		t.Errorf("ToCorners() = %+v, want %+v", got, want)
	}
}

func TestPixelBoxRect(t *testing.T) {
	p := PixelBox{X: 50, Y: 75, Width: 100, Height: 50}
	want := image.Rect(50, 25, 150, 75)
	if got := p.Rect(); got != want {
		t.Errorf("Rect() = %v, want %v", got, want)
	}
}

func TestNormalizedFromPixelsRoundTrip(t *testing.T) {
	r := image.Rect(50, 25, 150, 75)
	box := NormalizedFromPixels(r, 200, 100)
	want := NormalizedBox{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	if !almostEqual(box.X, want.X) || !almostEqual(box.Y, want.Y) ||
		!almostEqual(box.Width, want.Width) || !almostEqual(box.Height, want.Height) {
		t.Fatalf("NormalizedFromPixels() = %+v, want %+v", box, want)
	}
	if got := (Normalizer{}).ToPixels(box, 200, 100).Rect(); got != r {
		t.Errorf("round trip = %v, want %v", got, r)
	}
}

func TestNormalizedBoxWithin(t *testing.T) {
	region := NormalizedBox{X: 0.5, Y: 0.5, Width: 0.5, Height: 0.5}
	got := FullImage.Within(region)
	if got != region {
		t.Errorf("Within() = %+v, want %+v", got, region)
	}
}

func TestInUnitSquare(t *testing.T) {
	tests := []struct {
		name string
		box  NormalizedBox
		want bool
	}{
		{"full image", FullImage, true},
		{"inner box", NormalizedBox{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}, true},
		{"negative origin", NormalizedBox{X: -0.1, Y: 0, Width: 0.5, Height: 0.5}, false},
		{"overflows width", NormalizedBox{X: 0.6, Y: 0, Width: 0.5, Height: 0.5}, false},
		{"overflows height", NormalizedBox{X: 0, Y: 0.9, Width: 0.5, Height: 0.2}, false},
		{"zero width", NormalizedBox{X: 0, Y: 0, Width: 0, Height: 0.5}, false},
		{"NaN", NormalizedBox{X: math.NaN(), Y: 0, Width: 0.5, Height: 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.InUnitSquare(); got != tt.want {
				t.Errorf("InUnitSquare() = %v, want %v", got, tt.want)
			}
		})
	}
}
