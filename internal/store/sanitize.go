// ABOUTME: Text escaping applied to every string field before it is stored
// ABOUTME: Escapes the characters that would otherwise be interpreted as markup

package store

import "strings"

var (
	markupEscaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	markupUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
)

// Sanitize escapes &, < and > so stored text renders literally as HTML.
// Quotes are left alone.
func Sanitize(text string) string {
	return markupEscaper.Replace(text)
}

// Unsanitize reverses Sanitize. Copy stored text through it before handing it
// back to Add or Update, which would otherwise escape it a second time.
func Unsanitize(text string) string {
	return markupUnescaper.Replace(text)
}

func sanitizeValue(v any) any {
	if s, ok := v.(string); ok {
		return Sanitize(s)
	}
	return v
}
