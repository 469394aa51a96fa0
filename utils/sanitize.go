package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// SanitizeName strips any markup from a client-supplied filename before it
// is echoed back in API responses or stored in the database.
func SanitizeName(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}
