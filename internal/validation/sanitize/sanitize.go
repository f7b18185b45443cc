// Package sanitize normalizes raw field input before rule checking.
//
// Sanitization is deterministic and idempotent: re-sanitizing a stored value
// is a no-op. Callers rely on this when re-validating values that were
// sanitized on a previous write.
package sanitize

import (
	"strings"

	"garrison/internal/validation/rules"
)

const htmlEscapable = `<>"'`

var htmlEscaper = strings.NewReplacer(
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	`'`, "&#39;",
)

// Sanitize applies the base transform (trim, NUL strip) plus the field-type
// specific normalization for the type's sanitization class.
func Sanitize(raw string, fieldType rules.FieldType) string {
	value := strings.TrimSpace(raw)
	value = strings.ReplaceAll(value, "\x00", "")

	switch fieldType.Class() {
	case rules.ClassEmail:
		return sanitizeEmail(value)
	case rules.ClassPhone:
		// Trim again: stripping can expose interior whitespace at the edges.
		return strings.TrimSpace(keepOnly(value, isPhoneChar))
	case rules.ClassIdentifier:
		return keepOnly(strings.ToUpper(value), isIdentifierChar)
	case rules.ClassName:
		return strings.TrimSpace(keepOnly(value, isNameChar))
	default:
		// Generic fields keep their content but with markup-significant
		// characters escaped. Escaping introduces no characters from the
		// escapable set, so a second pass leaves the value unchanged.
		if strings.ContainsAny(value, htmlEscapable) {
			value = htmlEscaper.Replace(value)
		}
		return value
	}
}

// sanitizeEmail strips characters that can never appear in an address and
// lower-cases the domain part. The local part keeps its case: it is
// case-sensitive per RFC 5321 even though most providers ignore it.
func sanitizeEmail(value string) string {
	cleaned := keepOnly(value, isEmailChar)
	at := strings.LastIndexByte(cleaned, '@')
	if at < 0 {
		return cleaned
	}
	return cleaned[:at+1] + strings.ToLower(cleaned[at+1:])
}

func keepOnly(value string, keep func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isEmailChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune(".!#$%&*+/=?^_`{|}~-@", r)
}

func isPhoneChar(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == '+' || r == '-' || r == '(' || r == ')' || r == ' ':
		return true
	}
	return false
}

func isIdentifierChar(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '/'
}

func isNameChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == ' ' || r == '-' || r == '\'' || r == '.':
		return true
	}
	return false
}
