// Package slug turns product titles into URL path segments.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that do not decompose into an ASCII base plus a combining mark.
var folds = strings.NewReplacer(
	"ı", "i",
	"ß", "ss",
	"æ", "ae",
	"ø", "o",
	"đ", "d",
	"ł", "l",
	"&", " and ",
)

// Generate creates a lowercase, hyphen-separated ASCII slug from name.
// Accented letters lose their accents; everything else that is not a letter
// or digit becomes a single hyphen.
//
//	Generate("Crème Brûlée Set")   // "creme-brulee-set"
//	Generate("USB-C  Cable (2m)")  // "usb-c-cable-2m"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = folds.Replace(s)

	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = stripped
	}

	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}
