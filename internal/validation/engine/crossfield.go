package engine

import (
	"context"
	"fmt"
	"time"

	"garrison/internal/validation/models"
	"garrison/internal/validation/rules"
)

// Enlistment age bounds for the record-level date consistency rule.
const (
	minEnlistmentAge  = 16
	warnEnlistmentAge = 40
)

// ValidateRecord validates every present field of a record, then applies the
// cross-field consistency rules. Rules are independent: each violated rule is
// reported, in a fixed order.
func (e *Engine) ValidateRecord(ctx context.Context, record map[string]string) models.RecordResult {
	ctx, span := e.tracer.Start(ctx, "validation.record")
	defer span.End()

	result := models.RecordResult{Fields: make(map[string]models.Result, len(record))}
	for field, raw := range record {
		result.Fields[field] = e.ValidateField(ctx, field, raw)
	}

	e.checkEmergencyContact(result.Fields, &result)
	e.checkClearanceExpiry(result.Fields, &result)
	e.checkMedicalExpiry(result.Fields, &result)
	e.checkEnlistmentAge(result.Fields, &result)

	result.Valid = len(result.Errors) == 0
	for _, fieldResult := range result.Fields {
		if !fieldResult.Valid {
			result.Valid = false
			break
		}
	}
	if e.metrics != nil {
		e.metrics.ObserveRecordCheck(result.Valid)
	}
	return result
}

// fieldValue returns the sanitized value of a field, or "" when the field is
// absent or empty. Cross-field rules operate on sanitized values so they see
// the same data the per-field checks saw.
func fieldValue(fields map[string]models.Result, fieldType rules.FieldType) string {
	if fieldResult, ok := fields[string(fieldType)]; ok {
		return fieldResult.SanitizedValue
	}
	return ""
}

// An emergency contact is all-or-nothing: naming a contact requires both a
// phone number and a relationship. Both omissions are reported separately.
func (e *Engine) checkEmergencyContact(fields map[string]models.Result, result *models.RecordResult) {
	if fieldValue(fields, rules.FieldTypeEmergencyContactName) == "" {
		return
	}
	if fieldValue(fields, rules.FieldTypeEmergencyContactPhone) == "" {
		result.Errors = append(result.Errors, models.FieldError{
			Field:   string(rules.FieldTypeEmergencyContactPhone),
			Message: "emergency contact phone is required when a contact name is set",
		})
	}
	if fieldValue(fields, rules.FieldTypeEmergencyContactRelationship) == "" {
		result.Errors = append(result.Errors, models.FieldError{
			Field:   string(rules.FieldTypeEmergencyContactRelationship),
			Message: "emergency contact relationship is required when a contact name is set",
		})
	}
}

func (e *Engine) checkClearanceExpiry(fields map[string]models.Result, result *models.RecordResult) {
	level := fieldValue(fields, rules.FieldTypeSecurityClearance)
	if level == "" || level == "None" {
		return
	}
	if fieldValue(fields, rules.FieldTypeClearanceExpiry) == "" {
		result.Errors = append(result.Errors, models.FieldError{
			Field:   string(rules.FieldTypeClearanceExpiry),
			Message: "clearance expiry date is required when a clearance level is set",
		})
	}
}

func (e *Engine) checkMedicalExpiry(fields map[string]models.Result, result *models.RecordResult) {
	if fieldValue(fields, rules.FieldTypeMedicalFitness) != "Fit" {
		return
	}
	if fieldValue(fields, rules.FieldTypeMedicalExpiry) == "" &&
		fieldValue(fields, rules.FieldTypeNextMedicalDue) == "" {
		result.Errors = append(result.Errors, models.FieldError{
			Field:   string(rules.FieldTypeMedicalExpiry),
			Message: "a medical expiry or next medical due date is required for fit status",
		})
	}
}

func (e *Engine) checkEnlistmentAge(fields map[string]models.Result, result *models.RecordResult) {
	birth, ok := parseDate(fieldValue(fields, rules.FieldTypeDateOfBirth))
	if !ok {
		return
	}
	enlisted, ok := parseDate(fieldValue(fields, rules.FieldTypeEnlistmentDate))
	if !ok {
		return
	}

	age := wholeYears(birth, enlisted)
	if age < minEnlistmentAge {
		result.Errors = append(result.Errors, models.FieldError{
			Field:   string(rules.FieldTypeEnlistmentDate),
			Message: fmt.Sprintf("enlistment age of %d is below the minimum of %d", age, minEnlistmentAge),
		})
	} else if age > warnEnlistmentAge {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("enlistment age of %d is unusually high", age))
	}
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
