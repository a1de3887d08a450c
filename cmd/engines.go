package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/lehigh-university-libraries/textrecog/pkg/applevision"
	"github.com/lehigh-university-libraries/textrecog/pkg/azure"
	"github.com/lehigh-university-libraries/textrecog/pkg/gvision"
	"github.com/lehigh-university-libraries/textrecog/pkg/imaging"
	"github.com/lehigh-university-libraries/textrecog/pkg/providers"
	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
	"github.com/lehigh-university-libraries/textrecog/pkg/tesseract"
)

const defaultEngine = "apple-vision"

func engineFactory[E recognition.Engine](build func(providers.Settings) (E, error)) providers.Factory {
	return func(settings providers.Settings) (recognition.Engine, error) {
		e, err := build(settings)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

func newRegistry() *providers.Registry {
	registry := providers.NewRegistry()
	registry.Register("apple-vision", engineFactory(applevision.New))
	registry.Register("tesseract", engineFactory(tesseract.New))
	registry.Register("google-vision", engineFactory(gvision.New))
	registry.Register("azure", engineFactory(azure.New))
	return registry
}

func engineFromEnv() string {
	if e := os.Getenv("TEXTRECOG_ENGINE"); e != "" {
		return e
	}
	return defaultEngine
}

func maxHandlesFromEnv() int {
	v := os.Getenv("TEXTRECOG_MAX_HANDLES")
	if v == "" {
		return imaging.DefaultMaxHandles
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("Ignoring invalid TEXTRECOG_MAX_HANDLES", "value", v)
		return imaging.DefaultMaxHandles
	}
	return n
}

// newSession builds the named engine and wraps it in a session. The returned
// func releases the engine.
func newSession(engineName string, opts ...recognition.SessionOption) (*recognition.Session, func(), error) {
	engine, err := newRegistry().Get(engineName, providers.SettingsFromEnv())
	if err != nil {
		return nil, nil, err
	}
	closeEngine := func() {
		if c, ok := engine.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("Failed to close engine", "engine", engine.Name(), "err", err)
			}
		}
	}
	slog.Debug("Using engine", "engine", engine.Name())
	return recognition.NewSession(engine, imaging.NewLoader(maxHandlesFromEnv()), opts...), closeEngine, nil
}

func unknownValue(flag, value string, allowed ...string) error {
	return fmt.Errorf("invalid --%s %q (allowed: %v)", flag, value, allowed)
}
