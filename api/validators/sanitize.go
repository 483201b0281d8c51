package validators

import "strings"

// Length caps applied to free-form request fields before they reach the
// services.
const (
	MaxNameLen    = 255
	MaxAddressLen = 500
)

// TrimToLen strips surrounding whitespace and caps the result at maxLen
// bytes. A maxLen of zero leaves the length unbounded.
func TrimToLen(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen]
	}
	return trimmed
}
