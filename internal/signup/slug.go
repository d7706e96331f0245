package signup

import (
	"regexp"
	"strings"
)

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases name, collapses each run of characters outside
// [a-z0-9] into a single hyphen and trims hyphens from both ends.
// A name with no ASCII letters or digits yields "".
func Slugify(name string) string {
	slug := nonSlugRe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
