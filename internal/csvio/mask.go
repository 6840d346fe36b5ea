package csvio

import "strings"

// isCardMethod reports whether a payment method name triggers detail
// masking on export.
func isCardMethod(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), "card")
}

// MaskDetail replaces all but the last four characters of a payment detail
// identifier with asterisks. Identifiers of four characters or fewer come
// back unchanged, since max(0, len-4) leaves nothing to mask.
func MaskDetail(detail string) string {
	masked := len(detail) - 4
	if masked < 0 {
		masked = 0
	}
	return strings.Repeat("*", masked) + detail[masked:]
}
