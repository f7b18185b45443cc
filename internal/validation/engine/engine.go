// Package engine orchestrates sanitization, rule checks and threat scanning
// for personnel field input.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"garrison/internal/validation/metrics"
	"garrison/internal/validation/models"
	"garrison/internal/validation/rules"
	"garrison/internal/validation/sanitize"
	"garrison/internal/validation/threat"
	"garrison/pkg/requestcontext"
)

const dateLayout = "2006-01-02"

// cleanValue matches values containing only alphanumerics and basic
// punctuation; such values earn a small security-score bonus.
var cleanValue = regexp.MustCompile(`^[A-Za-z0-9 .,_'()/@+\-]+$`)

// Engine validates single fields and whole records. It is stateless and safe
// for concurrent use.
type Engine struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a logger for threat reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates a validation engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		tracer: otel.Tracer("garrison/validation"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateField sanitizes and validates one raw value against the rule
// registered for its field type. Unregistered field types bypass rule
// checking entirely: the value is sanitized and returned valid with a full
// score, which lets callers pass through fields this module does not govern.
func (e *Engine) ValidateField(ctx context.Context, fieldType string, raw string) models.Result {
	ctx, span := e.tracer.Start(ctx, "validation.field")
	defer span.End()

	ft, registered := rules.Parse(fieldType)
	value := sanitize.Sanitize(raw, ft)

	if !registered {
		return models.Result{Valid: true, SanitizedValue: value, SecurityScore: 100}
	}
	rule, _ := rules.Lookup(ft)

	// Phone values are matched and stored in compact form; the sanitizer
	// keeps the separators callers typed, the engine does not.
	if ft.Class() == rules.ClassPhone {
		value = stripPhoneSeparators(value)
	}

	result := e.checkField(ctx, fieldType, rule, value)
	if e.metrics != nil {
		e.metrics.ObserveFieldCheck(fieldType, !result.Valid)
	}
	return result
}

func (e *Engine) checkField(ctx context.Context, fieldName string, rule rules.Rule, value string) models.Result {
	result := models.Result{SanitizedValue: value}

	if value == "" {
		if rule.Required {
			result.Errors = append(result.Errors, models.FieldError{
				Field: fieldName, Message: "field is required",
			})
		}
		return finishResult(result)
	}

	if rule.MinLength > 0 && len(value) < rule.MinLength {
		result.Errors = append(result.Errors, models.FieldError{
			Field:   fieldName,
			Message: fmt.Sprintf("must be at least %d characters", rule.MinLength),
		})
	}
	if rule.MaxLength > 0 && len(value) > rule.MaxLength {
		result.Errors = append(result.Errors, models.FieldError{
			Field:   fieldName,
			Message: fmt.Sprintf("must be at most %d characters", rule.MaxLength),
		})
	}

	structuralFail := e.checkValueType(ctx, fieldName, rule, value, &result)

	if !structuralFail && rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		result.Errors = append(result.Errors, models.FieldError{
			Field: fieldName, Message: "has an invalid format",
		})
		structuralFail = true
	}

	if !structuralFail && rule.CalendarDigits {
		if err := checkCalendarDigits(ctx, value); err != nil {
			result.Errors = append(result.Errors, models.FieldError{
				Field: fieldName, Message: err.Error(),
			})
		}
	}

	if len(rule.Enum) > 0 && !contains(rule.Enum, value) {
		result.Errors = append(result.Errors, models.FieldError{
			Field:   fieldName,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(rule.Enum, ", ")),
		})
	}

	report := threat.Scan(value)
	result.Warnings = append(result.Warnings, report.Warnings...)
	hardThreat := len(report.Threats) > 0
	if hardThreat {
		result.Errors = append(result.Errors, models.FieldError{
			Field: fieldName, Message: models.ThreatMessage,
		})
	}
	if !report.Clean() {
		e.reportThreats(ctx, fieldName, report)
	}

	result = finishResult(result)
	if hardThreat {
		// Injection payloads are attacks, not validation failures: the score
		// collapses to zero regardless of every other check.
		result.SecurityScore = 0
	}
	return result
}

// checkValueType runs the type-specific checks. The returned bool reports a
// structural failure (unparseable value), which suppresses the pattern check.
func (e *Engine) checkValueType(ctx context.Context, fieldName string, rule rules.Rule, value string, result *models.Result) bool {
	switch rule.ValueType {
	case rules.ValueEmail:
		// Shape is enforced by the pattern check; nothing structural here.
		return false

	case rules.ValueInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			result.Errors = append(result.Errors, models.FieldError{
				Field: fieldName, Message: "must be a whole number",
			})
			return true
		}
		if rule.MinValue != 0 && n < rule.MinValue {
			result.Errors = append(result.Errors, models.FieldError{
				Field:   fieldName,
				Message: fmt.Sprintf("must be at least %d", rule.MinValue),
			})
		}
		if rule.MaxValue != 0 && n > rule.MaxValue {
			result.Errors = append(result.Errors, models.FieldError{
				Field:   fieldName,
				Message: fmt.Sprintf("must be at most %d", rule.MaxValue),
			})
		}
		if rule.WarnBelow != 0 && n >= rule.MinValue && n < rule.WarnBelow {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s of %d is unusually low", fieldName, n))
		}
		if rule.WarnAbove != 0 && n <= rule.MaxValue && n > rule.WarnAbove {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s of %d is unusually high", fieldName, n))
		}
		return false

	case rules.ValueDate:
		date, err := time.Parse(dateLayout, value)
		if err != nil {
			result.Errors = append(result.Errors, models.FieldError{
				Field: fieldName, Message: "must be a date in YYYY-MM-DD format",
			})
			return true
		}
		now := requestcontext.Now(ctx)
		if rule.PastOnly && !date.Before(now) {
			result.Errors = append(result.Errors, models.FieldError{
				Field: fieldName, Message: "must be in the past",
			})
		}
		if rule.MinAge > 0 || rule.MaxAge > 0 {
			age := wholeYears(date, now)
			if rule.MinAge > 0 && age < rule.MinAge {
				result.Errors = append(result.Errors, models.FieldError{
					Field:   fieldName,
					Message: fmt.Sprintf("age must be at least %d years", rule.MinAge),
				})
			}
			if rule.MaxAge > 0 && age > rule.MaxAge {
				result.Errors = append(result.Errors, models.FieldError{
					Field:   fieldName,
					Message: fmt.Sprintf("age must be at most %d years", rule.MaxAge),
				})
			}
		}
		return false
	}
	return false
}

func (e *Engine) reportThreats(ctx context.Context, fieldName string, report threat.Report) {
	for _, name := range report.Threats {
		if e.metrics != nil {
			e.metrics.ObserveThreat(name)
		}
		if e.logger != nil {
			e.logger.WarnContext(ctx, "injection payload rejected",
				"field", fieldName,
				"threat", name,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	for _, name := range report.Warnings {
		if e.metrics != nil {
			e.metrics.ObserveThreat(name)
		}
	}
}

// finishResult computes the security score and validity from the accumulated
// errors and warnings.
func finishResult(result models.Result) models.Result {
	score := 100 - 25*len(result.Errors) - 10*len(result.Warnings)
	if score < 0 {
		score = 0
	}
	if result.SanitizedValue != "" && cleanValue.MatchString(result.SanitizedValue) {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	result.SecurityScore = score
	result.Valid = len(result.Errors) == 0
	return result
}

// checkCalendarDigits validates the national-id digit groups: the first six
// digits read as day/month/year must form a real calendar date.
func checkCalendarDigits(ctx context.Context, value string) error {
	digits := make([]rune, 0, 6)
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
		if len(digits) == 6 {
			break
		}
	}
	if len(digits) < 6 {
		return fmt.Errorf("must start with six digits")
	}
	day := int(digits[0]-'0')*10 + int(digits[1]-'0')
	month := int(digits[2]-'0')*10 + int(digits[3]-'0')
	year := int(digits[4]-'0')*10 + int(digits[5]-'0')

	// Two-digit years pivot on the current century; only day-in-month
	// validity depends on it (leap years).
	fullYear := 1900 + year
	if year <= requestcontext.Now(ctx).Year()%100 {
		fullYear = 2000 + year
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("digits do not form a valid date: month %d", month)
	}
	if day < 1 || day > daysInMonth(fullYear, time.Month(month)) {
		return fmt.Errorf("digits do not form a valid date: day %d", day)
	}
	return nil
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// wholeYears computes the age in completed years from a date to now.
func wholeYears(from, now time.Time) int {
	years := now.Year() - from.Year()
	if now.Month() < from.Month() || (now.Month() == from.Month() && now.Day() < from.Day()) {
		years--
	}
	return years
}

func stripPhoneSeparators(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func contains(set []string, value string) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}
