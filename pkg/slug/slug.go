package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Latin letters with diacritics that commonly show up in course titles.
var transliterator = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"ç", "c", "ć", "c", "č", "c",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"ğ", "g",
	"í", "i", "ì", "i", "î", "i", "ï", "i", "ı", "i",
	"ñ", "n",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o", "ø", "o",
	"ş", "s", "š", "s", "ß", "ss",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ý", "y", "ÿ", "y",
	"ž", "z",
	"+", " plus ", "#", " sharp ", "&", " and ",
)

// Generate creates a URL-friendly slug from a title.
//
//	"Intro to Go" → "intro-to-go"
//	"C# & .NET Básico" → "c-sharp-and-net-basico"
func Generate(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = transliterator.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Matches reports whether ref names the same thing as title, either as an
// exact slug or as a case-insensitive title.
func Matches(ref, title string) bool {
	if ref == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(ref), strings.TrimSpace(title)) || Generate(ref) == Generate(title)
}
