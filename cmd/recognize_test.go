package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/lehigh-university-libraries/textrecog/pkg/recognition"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    recognition.NormalizedBox
		wantErr bool
	}{
		{in: "0,0,1,1", want: recognition.FullImage},
		{in: " 0.25, 0.5 ,0.5,0.25", want: recognition.NormalizedBox{X: 0.25, Y: 0.5, Width: 0.5, Height: 0.25}},
		{in: "0,0,1", wantErr: true},
		{in: "a,0,1,1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRegion(tt.in)
			if tt.wantErr {
				var cfgErr *recognition.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("parseRegion(%q) error = %v, want ConfigError", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("parseRegion(%q) = %+v, %v; want %+v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	cfg, err := buildConfig(recognizeOptions{
		languages:   []string{"fr-FR", "en-US"},
		orientation: "left",
		level:       "fast",
		cpuOnly:     true,
		roi:         "0,0,0.5,0.5",
	})
	if err != nil {
		t.Fatalf("buildConfig() unexpected error: %v", err)
	}
	if !slices.Equal(cfg.Languages(), []string{"fr-FR", "en-US"}) {
		t.Errorf("Languages() = %v", cfg.Languages())
	}
	if cfg.Level() != recognition.LevelFast || !cfg.UseCPUOnly() || cfg.Orientation() != recognition.OrientationLeft {
		t.Errorf("config = level %v cpu %v orientation %v", cfg.Level(), cfg.UseCPUOnly(), cfg.Orientation())
	}
	if region, ok := cfg.RegionOfInterest(); !ok || region.Width != 0.5 {
		t.Errorf("RegionOfInterest() = %+v, %v", region, ok)
	}

	if _, err := buildConfig(recognizeOptions{languages: []string{"en-US"}, orientation: "sideways"}); err == nil {
		t.Error("buildConfig() should reject an unknown orientation")
	}
}

func TestSessionOptions(t *testing.T) {
	if _, err := sessionOptions(recognizeOptions{emptyRegion: "nothing"}); err == nil {
		t.Error("sessionOptions() should reject an unknown empty-region policy")
	}
	if _, err := sessionOptions(recognizeOptions{rejectScripts: []string{"Klingon"}}); err == nil {
		t.Error("sessionOptions() should reject an unknown script")
	}
	opts, err := sessionOptions(recognizeOptions{emptyRegion: "empty", rejectScripts: []string{"cyrillic"}, roundTo: 2, corners: true})
	if err != nil {
		t.Fatalf("sessionOptions() unexpected error: %v", err)
	}
	if len(opts) != 3 {
		t.Errorf("got %d options, want 3", len(opts))
	}
}

func TestWriteResults(t *testing.T) {
	text := "Hello"
	conf := 0.5
	results := []recognition.Result{{Text: &text, Confidence: &conf, BoundingBox: &recognition.PixelBox{X: 1, Y: 20, Width: 10, Height: 5}}}

	tests := []struct {
		encoding string
		check    func(t *testing.T, out string)
	}{
		{
			encoding: "plain",
			check: func(t *testing.T, out string) {
				if out != "\"Hello\" (1, 20, 10, 5) 0.5\n" {
					t.Errorf("plain output = %q", out)
				}
			},
		},
		{
			encoding: "json",
			check: func(t *testing.T, out string) {
				var decoded []map[string]any
				if err := json.Unmarshal([]byte(out), &decoded); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if decoded[0]["text"] != "Hello" {
					t.Errorf("json output = %s", out)
				}
				if _, ok := decoded[0]["corners"]; ok {
					t.Errorf("unrequested corners should be omitted: %s", out)
				}
			},
		},
		{
			encoding: "yaml",
			check: func(t *testing.T, out string) {
				if !strings.Contains(out, "text: Hello") || !strings.Contains(out, "confidence: 0.5") {
					t.Errorf("yaml output = %s", out)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeResults(&buf, results, recognizeOptions{encoding: tt.encoding}, nil); err != nil {
				t.Fatalf("writeResults() unexpected error: %v", err)
			}
			tt.check(t, buf.String())
		})
	}

	if err := writeResults(&bytes.Buffer{}, results, recognizeOptions{encoding: "xml"}, nil); err == nil {
		t.Error("writeResults() should reject an unknown encoding")
	}
}

func TestApplyConfigFile(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var opts recognizeOptions
	flags.StringSliceVar(&opts.languages, "lang", []string{"en-US"}, "")
	flags.StringVar(&opts.level, "level", "accurate", "")
	flags.BoolVar(&opts.corners, "corners", false, "")
	if err := flags.Parse([]string{"--level", "accurate"}); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "textrecog.yaml")
	data := "lang: [fr-FR, de-DE]\nlevel: fast\ncorners: true\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if err := applyConfigFile(flags, path); err != nil {
		t.Fatalf("applyConfigFile() unexpected error: %v", err)
	}
	if !slices.Equal(opts.languages, []string{"fr-FR", "de-DE"}) {
		t.Errorf("languages = %v", opts.languages)
	}
	if opts.level != "accurate" {
		t.Errorf("level = %q, the command line value should win", opts.level)
	}
	if !opts.corners {
		t.Error("corners should be set from the file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("colour: red\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := applyConfigFile(flags, bad); err == nil {
		t.Error("applyConfigFile() should reject unknown keys")
	}
}

// resetRootFlags clears flag state left on RootCmd by earlier Execute calls.
func resetRootFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		RootCmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		RootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		recOpts.image = ""
		recOpts.configPath = ""
		RootCmd.SetArgs(nil)
	}
	reset()
	t.Cleanup(reset)
}

func TestRecognizeMissingImage(t *testing.T) {
	resetRootFlags(t)
	missing := filepath.Join(t.TempDir(), "missing.png")
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetArgs([]string{"--img", missing, "--log-level", "ERROR"})
	defer RootCmd.SetArgs(nil)

	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if got, want := buf.String(), missing+" not exist!\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRecognizeImageFromConfigFile(t *testing.T) {
	resetRootFlags(t)
	dir := t.TempDir()
	missing := filepath.Join(dir, "from-config.png")
	config := filepath.Join(dir, "textrecog.yaml")
	data := "img: " + missing + "\nlog-level: ERROR\n"
	if err := os.WriteFile(config, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetArgs([]string{"--config", config})

	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if got, want := buf.String(), missing+" not exist!\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if slog.Default().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("log-level from the config file was not applied")
	}
}

func TestRecognizeRequiresImage(t *testing.T) {
	resetRootFlags(t)
	RootCmd.SetOut(&bytes.Buffer{})
	RootCmd.SetErr(&bytes.Buffer{})
	RootCmd.SetArgs([]string{"--log-level", "ERROR"})

	err := RootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), `"img" not set`) {
		t.Errorf("Execute() error = %v, want missing img", err)
	}
}
