package digester

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceReplacer = strings.NewReplacer("\t", " ", "\n", " ")

// CleanMessage strips markup, turns &nbsp; tabs and newlines into spaces and trims
// the result. Applying it twice yields the same string as applying it once.
func CleanMessage(message string) string {
	message = stripTags(message)
	message = strings.ReplaceAll(message, "&nbsp;", " ")
	message = whitespaceReplacer.Replace(message)
	return strings.TrimSpace(message)
}

// stripTags removes tags until none are left, so that text such as "<<b>b>"
// cannot leave a new tag behind.
func stripTags(s string) string {
	for strings.Contains(s, "<") {
		next := stripTagsOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func stripTagsOnce(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			// Raw keeps entities encoded, decoding them could create new tags.
			b.Write(z.Raw())
		case html.StartTagToken:
			// Content of <script>, <title> etc. is markup too.
			z.NextIsNotRawText()
		}
	}
}

// normalize lower-cases s and removes diacritics, so "Sí" and "si" compare equal.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
