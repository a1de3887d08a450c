package recognition

import (
	"fmt"
	"strconv"
	"strings"
)

// Shape is the set of fields a caller wants populated on each Result.
type Shape uint8

const (
	ShapeText Shape = 1 << iota
	ShapeCoordinates
	ShapeConfidence

	ShapeAll = ShapeText | ShapeCoordinates | ShapeConfidence
)

// Has reports whether every capability in other is part of s.
func (s Shape) Has(other Shape) bool {
	return other != 0 && s&other == other
}

func (s Shape) String() string {
	if s == ShapeAll {
		return "all"
	}
	var parts []string
	if s.Has(ShapeText) {
		parts = append(parts, "text")
	}
	if s.Has(ShapeCoordinates) {
		parts = append(parts, "coord")
	}
	if s.Has(ShapeConfidence) {
		parts = append(parts, "confidence")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// ParseShape accepts text, coord, confidence, all and "+"-joined combinations
// such as "text+coord".
func ParseShape(s string) (Shape, error) {
	var shape Shape
	for _, part := range strings.Split(s, "+") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "text":
			shape |= ShapeText
		case "coord", "coords", "coordinates":
			shape |= ShapeCoordinates
		case "confidence", "conf":
			shape |= ShapeConfidence
		case "all":
			shape |= ShapeAll
		case "":
		default:
			return 0, &ConfigError{Field: "output_format", Reason: fmt.Sprintf("unknown capability %q", part)}
		}
	}
	if shape == 0 {
		return 0, &ConfigError{Field: "output_format", Reason: "at least one of text, coord, confidence is required"}
	}
	return shape, nil
}

// RawObservation is one recognized line as reported by an engine.
type RawObservation struct {
	Text       string
	Confidence float64
	Box        NormalizedBox
}

// Result is one recognized line in the requested shape. Fields that were not
// requested are nil.
type Result struct {
	Text        *string   `json:"text,omitempty" yaml:"text,omitempty"`
	Confidence  *float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	BoundingBox *PixelBox `json:"bounding_box,omitempty" yaml:"bounding_box,omitempty"`
	Corners     *Corners  `json:"corners,omitempty" yaml:"corners,omitempty"`
	// NoTextInRegion marks the placeholder returned when a region of
	// interest was searched and nothing was found.
	NoTextInRegion bool `json:"no_text_in_region,omitempty" yaml:"no_text_in_region,omitempty"`
}

func (r Result) String() string {
	if r.NoTextInRegion {
		return "[]"
	}
	var parts []string
	if r.Text != nil {
		parts = append(parts, strconv.Quote(*r.Text))
	}
	if r.BoundingBox != nil {
		parts = append(parts, r.BoundingBox.String())
	}
	if r.Corners != nil {
		parts = append(parts, r.Corners.String())
	}
	if r.Confidence != nil {
		parts = append(parts, strconv.FormatFloat(*r.Confidence, 'g', -1, 64))
	}
	return strings.Join(parts, " ")
}

// EmptyRegionPolicy decides what a search of a supplied region that found
// nothing returns.
type EmptyRegionPolicy int

const (
	// EmptyRegionSentinel returns a single Result with NoTextInRegion set.
	EmptyRegionSentinel EmptyRegionPolicy = iota
	// EmptyRegionEmptySlice returns an empty slice.
	EmptyRegionEmptySlice
)

// Aggregator shapes raw observations into results.
type Aggregator struct {
	Normalizer  Normalizer
	EmptyRegion EmptyRegionPolicy
}

// Aggregate builds one Result per observation, in engine order, populating
// only the fields named by shape. regionSupplied reports whether the caller
// restricted the search to a region of interest.
func (a Aggregator) Aggregate(observations []RawObservation, shape Shape, width, height int, regionSupplied bool) []Result {
	if len(observations) == 0 {
		if regionSupplied && a.EmptyRegion == EmptyRegionSentinel {
			return []Result{{NoTextInRegion: true}}
		}
		return []Result{}
	}

	results := make([]Result, 0, len(observations))
	for _, obs := range observations {
		var r Result
		if shape.Has(ShapeText) {
			text := obs.Text
			r.Text = &text
		}
		if shape.Has(ShapeConfidence) {
			conf := obs.Confidence
			r.Confidence = &conf
		}
		if shape.Has(ShapeCoordinates) {
			switch a.Normalizer.Representation {
			case TwoCorners:
				c := a.Normalizer.ToCorners(obs.Box, width, height)
				r.Corners = &c
			default:
				p := a.Normalizer.ToPixels(obs.Box, width, height)
				r.BoundingBox = &p
			}
		}
		results = append(results, r)
	}
	return results
}
