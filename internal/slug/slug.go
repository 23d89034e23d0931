// Package slug builds URL-safe identifiers from Vietnamese display names.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinLength is the shortest slug used without an id suffix
const MinLength = 3

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	separators   = regexp.MustCompile(`[\s-]+`)
)

// Make lowercases s, strips diacritics, folds đ to d and joins words with hyphens.
func Make(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "đ", "d")

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err == nil {
		s = folded
	}

	s = invalidChars.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// ForProduct returns Make(name), suffixed with the first 8 characters of id
// when the folded name is too short to be meaningful.
func ForProduct(name, id string) string {
	base := Make(name)
	if len(base) >= MinLength {
		return base
	}

	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// ExistsFunc reports whether a slug is already taken
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns base, or base-2, base-3, ... for the first candidate that is free.
func Unique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
