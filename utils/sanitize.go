package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	bodyPolicy = bluemonday.UGCPolicy()
	textPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans article bodies, keeping the formatting tags user content may carry.
func Sanitize(input string) string {
	return bodyPolicy.Sanitize(input)
}

// SanitizeText strips every tag from single-line fields such as titles and categories.
func SanitizeText(input string) string {
	return strings.TrimSpace(textPolicy.Sanitize(input))
}
