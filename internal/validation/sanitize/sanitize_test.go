package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"garrison/internal/validation/rules"
)

func TestSanitize(t *testing.T) {
	t.Run("trims whitespace and strips NUL bytes", func(t *testing.T) {
		assert.Equal(t, "hello", Sanitize("  hel\x00lo  ", rules.FieldTypeUnknown))
	})

	t.Run("escapes markup characters on generic fields", func(t *testing.T) {
		assert.Equal(t, "&lt;b&gt;note&lt;/b&gt;", Sanitize("<b>note</b>", rules.FieldTypeUnknown))
		assert.Equal(t, "O&#39;Neil said &quot;hi&quot;", Sanitize(`O'Neil said "hi"`, rules.FieldTypeUnknown))
	})

	t.Run("email lower-cases the domain only", func(t *testing.T) {
		assert.Equal(t, "John.Doe@example.com", Sanitize("John.Doe@EXAMPLE.COM", rules.FieldTypeEmail))
	})

	t.Run("email strips invalid characters", func(t *testing.T) {
		assert.Equal(t, "a.b@c.com", Sanitize(`a.b<">@c.com`, rules.FieldTypeEmail))
	})

	t.Run("phone keeps digits and separators", func(t *testing.T) {
		assert.Equal(t, "+260 95 123 4567", Sanitize(" +260 95 123 4567 ", rules.FieldTypePhone))
		assert.Equal(t, "(01) 234-5678", Sanitize("(01) 234-5678 ext", rules.FieldTypePhone))
	})

	t.Run("identifiers are upper-cased and restricted", func(t *testing.T) {
		assert.Equal(t, "ZA123456", Sanitize("za-123 456", rules.FieldTypeServiceNumber))
		assert.Equal(t, "010190/78/9", Sanitize(" 010190/78/9 ", rules.FieldTypeNationalID))
	})

	t.Run("names keep letters spaces hyphens apostrophes periods", func(t *testing.T) {
		assert.Equal(t, "O'Brien-Smythe Jr.", Sanitize("O'Brien-Smythe Jr.", rules.FieldTypeFirstName))
		assert.Equal(t, "Jane", Sanitize("Jane<#!>", rules.FieldTypeLastName))
	})
}

// Idempotence is the contract callers rely on when re-validating stored
// values: a second sanitization pass must be a no-op.
func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"  plain text  ",
		"<script>alert(1)</script>",
		`quotes "and" 'apostrophes'`,
		"John.Doe@EXAMPLE.COM",
		"+260 95 123 4567",
		"za/123 456",
		"O'Brien-Smythe Jr. <x>",
		"control\x00\x1fchars",
		"ext +1 (555) 000-1111 x99",
	}
	fieldTypes := []rules.FieldType{
		rules.FieldTypeUnknown,
		rules.FieldTypeEmail,
		rules.FieldTypePhone,
		rules.FieldTypeServiceNumber,
		rules.FieldTypeNationalID,
		rules.FieldTypeFirstName,
		rules.FieldTypeUnit,
	}

	for _, ft := range fieldTypes {
		for _, input := range inputs {
			once := Sanitize(input, ft)
			twice := Sanitize(once, ft)
			assert.Equal(t, once, twice, "field type %q, input %q", ft, input)
		}
	}
}
