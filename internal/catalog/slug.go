package catalog

import (
	"strings"

	"github.com/gosimple/slug"
)

// ProductSlug derives the URL token from name, brand and the already
// allocated product id: lowercase, runs of anything else collapsed to one
// "-", no separator at either end.
func ProductSlug(name, brand, id string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{name, brand, id} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return tokenize(strings.Join(parts, " "))
}

// tokenize is slug.Make without the underscores it lets through.
func tokenize(s string) string {
	t := strings.ReplaceAll(slug.Make(s), "_", "-")
	for strings.Contains(t, "--") {
		t = strings.ReplaceAll(t, "--", "-")
	}
	return strings.Trim(t, "-")
}
