package recognition

import (
	"errors"
	"testing"
	"unicode"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
		opts      []Option
		wantField string
	}{
		{name: "defaults", languages: []string{"en-US"}},
		{name: "all options", languages: []string{"en-US", "fr-FR"}, opts: []Option{
			WithLevel(LevelFast), WithCPUOnly(true), WithOrientation(OrientationLeftMirrored),
			WithRegionOfInterest(NormalizedBox{X: 0, Y: 0, Width: 0.5, Height: 0.5}),
		}},
		{name: "empty languages", languages: []string{}, wantField: "languages"},
		{name: "level out of range", languages: []string{"en-US"}, opts: []Option{WithLevel(2)}, wantField: "level"},
		{name: "negative level", languages: []string{"en-US"}, opts: []Option{WithLevel(-1)}, wantField: "level"},
		{name: "zero orientation", languages: []string{"en-US"}, opts: []Option{WithOrientation(0)}, wantField: "orientation"},
		{name: "orientation out of range", languages: []string{"en-US"}, opts: []Option{WithOrientation(9)}, wantField: "orientation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(tt.languages, tt.opts...)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("NewConfig() unexpected error: %v", err)
				}
				if len(cfg.Languages()) != len(tt.languages) {
					t.Errorf("Languages() = %v, want %v", cfg.Languages(), tt.languages)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("NewConfig() error = %v, want ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestConfigIsImmutable(t *testing.T) {
	langs := []string{"en-US", "de-DE"}
	cfg, err := NewConfig(langs)
	if err != nil {
		t.Fatal(err)
	}
	langs[0] = "xx"
	got := cfg.Languages()
	got[1] = "yy"
	if again := cfg.Languages(); again[0] != "en-US" || again[1] != "de-DE" {
		t.Errorf("Languages() = %v, config was mutated", again)
	}
	if _, ok := cfg.RegionOfInterest(); ok {
		t.Errorf("RegionOfInterest() reported a region when none was set")
	}
	if cfg.Level() != LevelAccurate || cfg.Orientation() != OrientationUp || cfg.UseCPUOnly() {
		t.Errorf("unexpected defaults: level=%v orientation=%v cpu=%v", cfg.Level(), cfg.Orientation(), cfg.UseCPUOnly())
	}
}

func TestParseOrientation(t *testing.T) {
	tests := map[string]Orientation{
		"up":             OrientationUp,
		"default":        OrientationUp,
		"Down":           OrientationDown,
		"left":           OrientationLeft,
		"right":          OrientationRight,
		"up-mirrored":    OrientationUpMirrored,
		"down-mirrored":  OrientationDownMirrored,
		"left-mirrored":  OrientationLeftMirrored,
		"right-mirrored": OrientationRightMirrored,
	}
	for input, want := range tests {
		got, err := ParseOrientation(input)
		if err != nil || got != want {
			t.Errorf("ParseOrientation(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseOrientation("sideways"); err == nil {
		t.Errorf("ParseOrientation(sideways) should fail")
	}
	if OrientationUp.Transposed() || !OrientationLeft.Transposed() || !OrientationRightMirrored.Transposed() {
		t.Errorf("Transposed() reports wrong axes")
	}
}

func TestParseLevel(t *testing.T) {
	for input, want := range map[string]Level{"accurate": LevelAccurate, "0": LevelAccurate, "FAST": LevelFast, "1": LevelFast} {
		got, err := ParseLevel(input)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseLevel("2"); err == nil {
		t.Errorf("ParseLevel(2) should fail")
	}
}

func TestValidatePath(t *testing.T) {
	cyrillic := RejectScripts(unicode.Cyrillic)
	tests := []struct {
		name     string
		path     string
		allowed  PathPredicate
		wantPos  int
		wantChar rune
		wantErr  bool
	}{
		{name: "plain path", path: "images/scan.png", allowed: cyrillic},
		{name: "nil predicate", path: "изображение.png", allowed: nil},
		{name: "allow all", path: "изображение.png", allowed: AllowAllPaths},
		{name: "empty", path: "", allowed: AllowAllPaths, wantErr: true},
		{name: "cyrillic first rune", path: "Ёлка.png", allowed: cyrillic, wantErr: true, wantPos: 1, wantChar: 'Ё'},
		{name: "cyrillic after multibyte", path: "日本/файл.png", allowed: cyrillic, wantErr: true, wantPos: 4, wantChar: 'ф'},
		{name: "greek rejected", path: "scans/αβ.png", allowed: RejectScripts(unicode.Greek), wantErr: true, wantPos: 7, wantChar: 'α'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, tt.allowed)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("ValidatePath() unexpected error: %v", err)
				}
				return
			}
			var pathErr *InvalidPathError
			if !errors.As(err, &pathErr) {
				t.Fatalf("ValidatePath() error = %v, want InvalidPathError", err)
			}
			if pathErr.Position != tt.wantPos || pathErr.Char != tt.wantChar {
				t.Errorf("InvalidPathError = {pos %d char %q}, want {pos %d char %q}", pathErr.Position, pathErr.Char, tt.wantPos, tt.wantChar)
			}
		})
	}
}

func TestScriptByName(t *testing.T) {
	table, err := ScriptByName("cyrillic")
	if err != nil {
		t.Fatalf("ScriptByName() unexpected error: %v", err)
	}
	if !unicode.Is(table, 'ж') {
		t.Errorf("ScriptByName(cyrillic) table does not contain ж")
	}
	if _, err := ScriptByName("klingon"); err == nil {
		t.Errorf("ScriptByName(klingon) should fail")
	}
}
