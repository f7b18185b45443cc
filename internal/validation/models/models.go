package models

// ThreatMessage is the error message attached to a field whose value
// tripped the injection scanner. Transport layers key security events on it.
const ThreatMessage = "security threat detected"

// FieldError describes a single validation failure on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of validating a single field value.
// Produced fresh per call and never mutated after return.
type Result struct {
	Valid          bool         `json:"valid"`
	SanitizedValue string       `json:"sanitized_value"`
	Errors         []FieldError `json:"errors,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`

	// SecurityScore is a 0-100 signal: 100 is clean input, 0 is a detected
	// attack payload. It is advisory except for injection hits, which force
	// it to zero and invalidate the value.
	SecurityScore int `json:"security_score"`
}

// RecordResult aggregates per-field results plus cross-field errors.
// A record is valid iff every field result is valid and no cross-field
// error exists.
type RecordResult struct {
	Valid    bool              `json:"valid"`
	Fields   map[string]Result `json:"fields"`
	Errors   []FieldError      `json:"errors,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}
