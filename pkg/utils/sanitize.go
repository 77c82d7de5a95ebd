package utils

import "strings"

var messageEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// SanitizeMessage escapes markup-significant characters so stored message
// content is inert when a client renders it as HTML.
func SanitizeMessage(content string) string {
	return strings.TrimSpace(messageEscaper.Replace(content))
}
