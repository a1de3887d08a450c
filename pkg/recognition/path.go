package recognition

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// PathPredicate reports whether a rune may appear in an image path.
type PathPredicate func(r rune) bool

// AllowAllPaths accepts every rune.
func AllowAllPaths(rune) bool { return true }

// RejectScripts builds a predicate rejecting runes from any of the tables.
func RejectScripts(tables ...*unicode.RangeTable) PathPredicate {
	return func(r rune) bool {
		return !unicode.IsOneOf(tables, r)
	}
}

// ScriptByName looks up a Unicode script table such as "Cyrillic",
// ignoring case.
func ScriptByName(name string) (*unicode.RangeTable, error) {
	for script, table := range unicode.Scripts {
		if strings.EqualFold(script, name) {
			return table, nil
		}
	}
	names := make([]string, 0, len(unicode.Scripts))
	for script := range unicode.Scripts {
		names = append(names, script)
	}
	sort.Strings(names)
	return nil, &ConfigError{Field: "reject_script", Reason: fmt.Sprintf("unknown script %q (known: %s)", name, strings.Join(names, ", "))}
}

// ValidatePath checks that path is non-empty and every rune passes allowed.
// A nil predicate allows everything.
func ValidatePath(path string, allowed PathPredicate) error {
	if path == "" {
		return &InvalidPathError{}
	}
	if allowed == nil {
		return nil
	}
	pos := 0
	for _, r := range path {
		pos++
		if !allowed(r) {
			return &InvalidPathError{Path: path, Position: pos, Char: r}
		}
	}
	return nil
}
