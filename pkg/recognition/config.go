package recognition

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Level trades recognition accuracy for speed.
type Level int

const (
	LevelAccurate Level = 0
	LevelFast     Level = 1
)

func (l Level) String() string {
	switch l {
	case LevelAccurate:
		return "accurate"
	case LevelFast:
		return "fast"
	}
	return "Level(" + strconv.Itoa(int(l)) + ")"
}

func (l Level) valid() bool {
	return l == LevelAccurate || l == LevelFast
}

// ParseLevel accepts "accurate", "fast" or their numeric forms "0" and "1".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accurate", "0", "":
		return LevelAccurate, nil
	case "fast", "1":
		return LevelFast, nil
	}
	return 0, &ConfigError{Field: "level", Reason: fmt.Sprintf("%q is not one of accurate, fast", s)}
}

// Orientation is the EXIF orientation of the source image. Values match
// CGImagePropertyOrientation so they can be handed to engines verbatim.
type Orientation uint32

const (
	OrientationUp            Orientation = 1
	OrientationUpMirrored    Orientation = 2
	OrientationDown          Orientation = 3
	OrientationDownMirrored  Orientation = 4
	OrientationLeftMirrored  Orientation = 5
	OrientationRight         Orientation = 6
	OrientationRightMirrored Orientation = 7
	OrientationLeft          Orientation = 8
)

var orientationNames = map[string]Orientation{
	"default":        OrientationUp,
	"up":             OrientationUp,
	"down":           OrientationDown,
	"left":           OrientationLeft,
	"right":          OrientationRight,
	"up-mirrored":    OrientationUpMirrored,
	"down-mirrored":  OrientationDownMirrored,
	"left-mirrored":  OrientationLeftMirrored,
	"right-mirrored": OrientationRightMirrored,
}

// Valid reports whether o is one of the eight orientations.
func (o Orientation) Valid() bool {
	return o >= OrientationUp && o <= OrientationLeft
}

// Transposed reports whether the orientation swaps width and height.
func (o Orientation) Transposed() bool {
	return o >= OrientationLeftMirrored
}

func (o Orientation) String() string {
	for name, v := range orientationNames {
		if v == o && name != "default" {
			return name
		}
	}
	return "Orientation(" + strconv.Itoa(int(o)) + ")"
}

// ParseOrientation maps the CLI names (up, down-mirrored, ...) to an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	o, ok := orientationNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		names := make([]string, 0, len(orientationNames))
		for name := range orientationNames {
			names = append(names, name)
		}
		slices.Sort(names)
		return 0, &ConfigError{Field: "orientation", Reason: fmt.Sprintf("%q must be one of %s", s, strings.Join(names, ", "))}
	}
	return o, nil
}

// Config is an immutable set of recognition parameters. A Config may be
// shared between goroutines and reused across Recognize calls.
type Config struct {
	languages   []string
	level       Level
	useCPUOnly  bool
	orientation Orientation
	region      *NormalizedBox
}

// Option customizes a Config at construction time.
type Option func(*Config)

// WithLevel sets the recognition level.
func WithLevel(level Level) Option {
	return func(c *Config) { c.level = level }
}

// WithCPUOnly restricts the engine to the CPU when it supports the choice.
func WithCPUOnly(cpuOnly bool) Option {
	return func(c *Config) { c.useCPUOnly = cpuOnly }
}

// WithOrientation sets the orientation applied to the image before recognition.
func WithOrientation(o Orientation) Option {
	return func(c *Config) { c.orientation = o }
}

// WithRegionOfInterest limits recognition to a normalized sub-rectangle.
func WithRegionOfInterest(region NormalizedBox) Option {
	return func(c *Config) {
		r := region
		c.region = &r
	}
}

// NewConfig validates and builds a Config. Language support and the region of
// interest are checked later, when the config is used.
func NewConfig(languages []string, opts ...Option) (*Config, error) {
	c := &Config{
		level:       LevelAccurate,
		orientation: OrientationUp,
	}
	for _, lang := range languages {
		lang = strings.TrimSpace(lang)
		if lang != "" {
			c.languages = append(c.languages, lang)
		}
	}
	for _, opt := range opts {
		opt(c)
	}

	if len(c.languages) == 0 {
		return nil, &ConfigError{Field: "languages", Reason: "at least one language is required"}
	}
	if !c.level.valid() {
		return nil, &ConfigError{Field: "level", Reason: fmt.Sprintf("%d is not 0 (accurate) or 1 (fast)", int(c.level))}
	}
	if !c.orientation.Valid() {
		return nil, &ConfigError{Field: "orientation", Reason: fmt.Sprintf("%d is not a known orientation", uint32(c.orientation))}
	}
	return c, nil
}

// Languages returns a copy of the requested language tags in order.
func (c *Config) Languages() []string {
	return slices.Clone(c.languages)
}

func (c *Config) Level() Level { return c.level }

func (c *Config) UseCPUOnly() bool { return c.useCPUOnly }

func (c *Config) Orientation() Orientation { return c.orientation }

// RegionOfInterest returns the configured region and whether one was set.
func (c *Config) RegionOfInterest() (NormalizedBox, bool) {
	if c.region == nil {
		return FullImage, false
	}
	return *c.region, true
}
