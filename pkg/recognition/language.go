package recognition

import (
	"strings"

	"golang.org/x/text/language"
)

// parseTag parses tag as BCP-47. Engine-specific codes such as tesseract's
// "chi_sim" are not tags even though the parser would accept "_" as a
// separator.
func parseTag(tag string) (language.Tag, bool) {
	if strings.Contains(tag, "_") {
		return language.Und, false
	}
	t, err := language.Parse(tag)
	if err != nil {
		return language.Und, false
	}
	return t, true
}

// canonicalTag returns the canonical BCP-47 form of tag, or the lower-cased
// input when it is not a BCP-47 tag.
func canonicalTag(tag string) string {
	t, ok := parseTag(tag)
	if !ok {
		return strings.ToLower(tag)
	}
	return t.String()
}

// languageSet matches requested tags against an engine's supported tags.
type languageSet map[string]struct{}

func newLanguageSet(supported []string) languageSet {
	set := make(languageSet, len(supported))
	for _, tag := range supported {
		set[canonicalTag(tag)] = struct{}{}
	}
	return set
}

// supports reports whether tag is listed, either exactly or through its bare
// base language ("en" covers "en-US").
func (s languageSet) supports(tag string) bool {
	if _, ok := s[canonicalTag(tag)]; ok {
		return true
	}
	t, ok := parseTag(tag)
	if !ok {
		return false
	}
	base, conf := t.Base()
	if conf == language.No {
		return false
	}
	_, ok = s[base.String()]
	return ok
}
