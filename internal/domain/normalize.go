package domain

import (
	"strings"
	"unicode"
)

// NormalizeCountyName canonicalizes a county name for cross-source joins.
// The boundary file uses title case ("El Paso"), the facility registry uses
// upper case ("EL PASO"), and several sources append a " County" suffix.
// All are reduced to a single-spaced title-case form without the suffix.
func NormalizeCountyName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	words := strings.Fields(name)
	if n := len(words); n > 0 && strings.EqualFold(words[n-1], "county") {
		words = words[:n-1]
	}

	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

// titleWord upper-cases the first letter of each hyphen-separated part and
// lower-cases the rest, so "EL" -> "El" and "idaho-springs" -> "Idaho-Springs".
func titleWord(w string) string {
	parts := strings.Split(strings.ToLower(w), "-")
	for i, p := range parts {
		runes := []rune(p)
		if len(runes) == 0 {
			continue
		}
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, "-")
}
