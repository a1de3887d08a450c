package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Session runs recognitions against one engine. A Session is safe for
// concurrent use; every call acquires and releases its own image handle.
type Session struct {
	engine     Engine
	loader     ImageLoader
	aggregator Aggregator
	allowed    PathPredicate

	mu        sync.Mutex
	languages map[Level]supportedLanguages
}

type supportedLanguages struct {
	tags []string
	set  languageSet
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithNormalizer sets how engine boxes are converted to pixels.
func WithNormalizer(n Normalizer) SessionOption {
	return func(s *Session) { s.aggregator.Normalizer = n }
}

// WithEmptyRegionPolicy sets what an empty search of a supplied region returns.
func WithEmptyRegionPolicy(p EmptyRegionPolicy) SessionOption {
	return func(s *Session) { s.aggregator.EmptyRegion = p }
}

// WithPathPredicate restricts the runes allowed in image paths.
func WithPathPredicate(p PathPredicate) SessionOption {
	return func(s *Session) { s.allowed = p }
}

// NewSession creates a Session for engine, loading images with loader.
func NewSession(engine Engine, loader ImageLoader, opts ...SessionOption) *Session {
	s := &Session{
		engine:    engine,
		loader:    loader,
		allowed:   AllowAllPaths,
		languages: make(map[Level]supportedLanguages),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the engine the session submits to.
func (s *Session) Engine() Engine {
	return s.engine
}

// Recognize extracts text from src using cfg and returns one Result per
// recognized line, populated according to shape.
func (s *Session) Recognize(ctx context.Context, cfg *Config, src Source, shape Shape) ([]Result, error) {
	if cfg == nil {
		return nil, &ConfigError{Field: "config", Reason: "config is required"}
	}
	if shape&ShapeAll == 0 {
		return nil, &ConfigError{Field: "output_format", Reason: "at least one of text, coord, confidence is required"}
	}
	if path, ok := src.(FilePath); ok {
		if err := ValidatePath(string(path), s.allowed); err != nil {
			return nil, err
		}
	}

	region, regionSupplied := cfg.RegionOfInterest()
	if !region.InUnitSquare() {
		return nil, &RegionOfInterestError{Region: region}
	}

	if err := s.checkLanguages(ctx, cfg); err != nil {
		return nil, err
	}

	img, err := s.loader.Load(ctx, src, cfg.Orientation())
	if err != nil {
		return nil, err
	}
	defer img.Release()

	req := &Request{
		Image:      img,
		Languages:  cfg.Languages(),
		Level:      cfg.Level(),
		UseCPUOnly: cfg.UseCPUOnly(),
		Region:     region,
	}

	start := time.Now()
	observations, err := s.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Debug("Recognition completed",
		"engine", s.engine.Name(),
		"source", src.Describe(),
		"observations", len(observations),
		"image_size", fmt.Sprintf("%dx%d", img.Width(), img.Height()),
		"duration", time.Since(start))

	return s.aggregator.Aggregate(observations, shape, img.Width(), img.Height(), regionSupplied), nil
}

// SupportedLanguages returns the engine's supported tags for level, querying
// the engine once per level.
func (s *Session) SupportedLanguages(ctx context.Context, level Level) ([]string, error) {
	supported, err := s.supported(ctx, level)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), supported.tags...), nil
}

func (s *Session) supported(ctx context.Context, level Level) (supportedLanguages, error) {
	s.mu.Lock()
	cached, ok := s.languages[level]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	tags, err := s.engine.SupportedLanguages(ctx, level)
	if err != nil {
		return supportedLanguages{}, s.engineError(err)
	}
	cached = supportedLanguages{tags: append([]string(nil), tags...), set: newLanguageSet(tags)}
	s.mu.Lock()
	s.languages[level] = cached
	s.mu.Unlock()
	return cached, nil
}

func (s *Session) checkLanguages(ctx context.Context, cfg *Config) error {
	supported, err := s.supported(ctx, cfg.Level())
	if err != nil {
		return err
	}

	for _, tag := range cfg.Languages() {
		if !supported.set.supports(tag) {
			return &UnsupportedLanguageError{Tag: tag, Engine: s.engine.Name()}
		}
	}
	return nil
}

// submit blocks until the engine's completion handler has fired.
func (s *Session) submit(ctx context.Context, req *Request) ([]RawObservation, error) {
	c := newCompletion(s.engine.Name())
	if err := s.engine.Perform(ctx, req, c.handler()); err != nil {
		return nil, s.engineError(err)
	}
	observations, err := c.wait()
	if err != nil {
		return nil, s.engineError(err)
	}
	return observations, nil
}

func (s *Session) engineError(err error) error {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return err
	}
	var roiErr *RegionOfInterestError
	if errors.As(err, &roiErr) {
		return err
	}
	return &EngineError{Engine: s.engine.Name(), Code: CodeUnknown, Message: err.Error(), Err: err}
}
