package recognition

import "testing"

func TestLanguageSetSupports(t *testing.T) {
	set := newLanguageSet([]string{"en", "fr-FR", "chi_sim", "zh-Hans"})
	tests := []struct {
		tag  string
		want bool
	}{
		{"en", true},
		{"en-US", true},
		{"EN-gb", true},
		{"fr-FR", true},
		{"fr-CA", false},
		{"chi_sim", true},
		{"CHI_SIM", true},
		{"sim", false},
		{"chi", false},
		{"zh-Hans", true},
		{"de", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := set.supports(tt.tag); got != tt.want {
				t.Errorf("supports(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestCanonicalTag(t *testing.T) {
	tests := map[string]string{
		"en-us":   "en-US",
		"chi_sim": "chi_sim",
		"Chi_Tra": "chi_tra",
		"zh-hant": "zh-Hant",
	}
	for in, want := range tests {
		if got := canonicalTag(in); got != want {
			t.Errorf("canonicalTag(%q) = %q, want %q", in, got, want)
		}
	}
}
