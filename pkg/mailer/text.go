package mailer

import "strings"

// HTMLToText derives a plain-text alternative from a rendered HTML body.
// Closing paragraphs become newlines and remaining tags are stripped; good
// enough for the short notification bodies this service sends.
func HTMLToText(html string) string {
	html = strings.ReplaceAll(html, "</p>", "\n")
	var b strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
