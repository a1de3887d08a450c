package providers

import (
	"os"
	"time"
)

// Settings carries engine-specific configuration read from the environment.
type Settings struct {
	// AppleVisionHelper is the helper executable that drives the native
	// Vision framework.
	AppleVisionHelper string

	AzureEndpoint string
	AzureAPIKey   string

	// Timeout bounds a single remote engine call. Zero uses the engine default.
	Timeout time.Duration
}

// SettingsFromEnv reads engine settings from environment variables.
func SettingsFromEnv() Settings {
	s := Settings{
		AppleVisionHelper: os.Getenv("APPLE_VISION_HELPER"),
		AzureEndpoint:     os.Getenv("AZURE_OCR_ENDPOINT"),
		AzureAPIKey:       os.Getenv("AZURE_OCR_API_KEY"),
	}
	if t := os.Getenv("TEXTRECOG_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			s.Timeout = d
		}
	}
	return s
}

// TruncateBody truncates a response body to a maximum length for error messages.
// This helps keep error logs readable while still providing context.
// Default maxLen is 500 if not specified.
func TruncateBody(body []byte, maxLen ...int) string {
	limit := 500
	if len(maxLen) > 0 && maxLen[0] > 0 {
		limit = maxLen[0]
	}
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "... (truncated)"
	}
	return s
}
