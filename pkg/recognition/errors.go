package recognition

import (
	"fmt"
	"strconv"
)

// ConfigError reports invalid construction arguments.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// InvalidPathError reports an empty path or a path containing a rune
// rejected by the session's PathPredicate.
type InvalidPathError struct {
	Path string
	// Position is the 1-based rune index of Char, zero for an empty path.
	Position int
	Char     rune
}

func (e *InvalidPathError) Error() string {
	if e.Position == 0 {
		return "image path must not be empty"
	}
	return fmt.Sprintf("image path %q contains disallowed character %q at position %d", e.Path, e.Char, e.Position)
}

// ImageLoadError reports a missing file or an undecodable image or buffer.
type ImageLoadError struct {
	Source string
	Err    error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("failed to load image %s: %v", e.Source, e.Err)
}

func (e *ImageLoadError) Unwrap() error {
	return e.Err
}

// UnsupportedFormatError reports a pixel layout that cannot be mapped to the
// encoding engines expect.
type UnsupportedFormatError struct {
	Channels int
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported pixel layout with %d channels", e.Channels)
}

// UnsupportedLanguageError names a requested tag the engine does not support.
type UnsupportedLanguageError struct {
	Tag    string
	Engine string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("language %q is not supported by engine %s", e.Tag, e.Engine)
}

// RegionOfInterestError reports a rectangle outside the normalized unit square.
type RegionOfInterestError struct {
	Region NormalizedBox
}

func (e *RegionOfInterestError) Error() string {
	r := e.Region
	return fmt.Sprintf("region of interest {x:%g y:%g width:%g height:%g} is outside [0,1]x[0,1]", r.X, r.Y, r.Width, r.Height)
}

// CodeUnknown is used when an engine failure carries no code of its own.
const CodeUnknown = -1

// EngineError carries an engine failure verbatim.
type EngineError struct {
	Engine  string
	Code    int
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	code := "unknown"
	if e.Code != CodeUnknown {
		code = strconv.Itoa(e.Code)
	}
	return fmt.Sprintf("%s engine error (code %s): %s", e.Engine, code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
