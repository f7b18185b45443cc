// Package rules defines the closed set of personnel field types and the
// declarative constraint attached to each one.
//
// Field types are a compile-time enumerable set rather than an open string
// registry: unknown identifiers resolve to FieldTypeUnknown explicitly, which
// bypasses rule checking (sanitization still applies).
package rules

import "regexp"

// FieldType identifies the semantic type of a personnel input field.
type FieldType string

const (
	FieldTypeUnknown FieldType = ""

	FieldTypeFirstName                    FieldType = "firstName"
	FieldTypeLastName                     FieldType = "lastName"
	FieldTypeEmail                        FieldType = "email"
	FieldTypePhone                        FieldType = "phone"
	FieldTypeServiceNumber                FieldType = "serviceNumber"
	FieldTypeNationalID                   FieldType = "nationalId"
	FieldTypePassport                     FieldType = "passportNumber"
	FieldTypeDateOfBirth                  FieldType = "dateOfBirth"
	FieldTypeEnlistmentDate               FieldType = "enlistmentDate"
	FieldTypeBloodGroup                   FieldType = "bloodGroup"
	FieldTypeHeight                       FieldType = "heightCm"
	FieldTypeRank                         FieldType = "rank"
	FieldTypeUnit                         FieldType = "unit"
	FieldTypeStatus                       FieldType = "status"
	FieldTypeSecurityClearance            FieldType = "securityClearanceLevel"
	FieldTypeClearanceExpiry              FieldType = "clearanceExpiryDate"
	FieldTypeMedicalFitness               FieldType = "medicalFitnessStatus"
	FieldTypeMedicalExpiry                FieldType = "medicalExpiryDate"
	FieldTypeNextMedicalDue               FieldType = "nextMedicalDue"
	FieldTypeAddress                      FieldType = "address"
	FieldTypeNotes                        FieldType = "notes"
	FieldTypeEmergencyContactName         FieldType = "emergencyContactName"
	FieldTypeEmergencyContactPhone        FieldType = "emergencyContactPhone"
	FieldTypeEmergencyContactRelationship FieldType = "emergencyContactRelationship"
)

// Parse resolves a raw field identifier to a registered FieldType.
// The second return is false for unregistered identifiers, which callers must
// treat as the explicit unknown variant, not an error.
func Parse(raw string) (FieldType, bool) {
	ft := FieldType(raw)
	if _, ok := registry[ft]; ok {
		return ft, true
	}
	return FieldTypeUnknown, false
}

// Class groups field types by the sanitization they need.
type Class int

const (
	ClassGeneric Class = iota
	ClassEmail
	ClassPhone
	ClassIdentifier
	ClassName
)

// Class returns the sanitization class for the field type.
func (ft FieldType) Class() Class {
	switch ft {
	case FieldTypeEmail:
		return ClassEmail
	case FieldTypePhone, FieldTypeEmergencyContactPhone:
		return ClassPhone
	case FieldTypeServiceNumber, FieldTypeNationalID, FieldTypePassport:
		return ClassIdentifier
	case FieldTypeFirstName, FieldTypeLastName, FieldTypeEmergencyContactName:
		return ClassName
	default:
		return ClassGeneric
	}
}

// ValueType selects the type-specific checks the engine runs.
type ValueType int

const (
	ValueString ValueType = iota
	ValueInteger
	ValueEmail
	ValueDate
)

// Rule is the declarative constraint set for one field type.
// Zero values mean "not constrained" (MinLength 0, nil Pattern, nil Enum).
type Rule struct {
	Required  bool
	Pattern   *regexp.Regexp
	MinLength int
	MaxLength int
	Enum      []string
	ValueType ValueType

	// Integer bounds.
	MinValue int
	MaxValue int
	// Integer advisory bounds; values outside produce warnings, not errors.
	WarnBelow int
	WarnAbove int

	// Date constraints. Ages are whole years relative to now.
	PastOnly bool
	MinAge   int
	MaxAge   int

	// CalendarDigits enables the national-id check: the first six digits are
	// interpreted as day/month/year and must form a valid calendar date.
	CalendarDigits bool
}

var (
	personNamePattern    = regexp.MustCompile(`^[A-Za-z\s'\-]{2,50}$`)
	relationshipPattern  = regexp.MustCompile(`^[A-Za-z\s'\-]{2,30}$`)
	emailPattern         = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phonePattern         = regexp.MustCompile(`^\+?\d{8,15}$`)
	serviceNumberPattern = regexp.MustCompile(`^[A-Z0-9]{6,20}$`)
	nationalIDPattern    = regexp.MustCompile(`^\d{6}/\d{2}/\d$`)
	passportPattern      = regexp.MustCompile(`^[A-Z0-9]{6,12}$`)
	unitPattern          = regexp.MustCompile(`^[A-Za-z0-9\s\-/.]{2,80}$`)
)

var bloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

var clearanceLevels = []string{"None", "Confidential", "Secret", "Top Secret"}

var fitnessStatuses = []string{"Fit", "Limited", "Unfit", "Pending Review"}

var serviceStatuses = []string{"Active", "Reserve", "Leave", "Retired", "Discharged"}

// registry holds exactly one rule per registered field type.
var registry = map[FieldType]Rule{
	FieldTypeFirstName: {Required: true, Pattern: personNamePattern, MinLength: 2, MaxLength: 50},
	FieldTypeLastName:  {Required: true, Pattern: personNamePattern, MinLength: 2, MaxLength: 50},
	FieldTypeEmail:     {Pattern: emailPattern, MaxLength: 100, ValueType: ValueEmail},
	FieldTypePhone:     {Pattern: phonePattern},
	FieldTypeServiceNumber: {
		Required: true, Pattern: serviceNumberPattern, MinLength: 6, MaxLength: 20,
	},
	FieldTypeNationalID: {
		Required: true, Pattern: nationalIDPattern, CalendarDigits: true,
	},
	FieldTypePassport:       {Pattern: passportPattern},
	FieldTypeDateOfBirth:    {Required: true, ValueType: ValueDate, PastOnly: true, MinAge: 16, MaxAge: 75},
	FieldTypeEnlistmentDate: {Required: true, ValueType: ValueDate, PastOnly: true},
	FieldTypeBloodGroup:     {Enum: bloodGroups},
	FieldTypeHeight: {
		ValueType: ValueInteger, MinValue: 100, MaxValue: 250, WarnBelow: 150, WarnAbove: 220,
	},
	FieldTypeRank:                         {Pattern: personNamePattern, MinLength: 2, MaxLength: 50},
	FieldTypeUnit:                         {Pattern: unitPattern, MinLength: 2, MaxLength: 80},
	FieldTypeStatus:                       {Enum: serviceStatuses},
	FieldTypeSecurityClearance:            {Enum: clearanceLevels},
	FieldTypeClearanceExpiry:              {ValueType: ValueDate},
	FieldTypeMedicalFitness:               {Enum: fitnessStatuses},
	FieldTypeMedicalExpiry:                {ValueType: ValueDate},
	FieldTypeNextMedicalDue:               {ValueType: ValueDate},
	// Free text: no pattern, the threat scanner is the only content gate.
	FieldTypeAddress:                      {MinLength: 5, MaxLength: 120},
	FieldTypeNotes:                        {MaxLength: 500},
	FieldTypeEmergencyContactName:         {Pattern: personNamePattern, MinLength: 2, MaxLength: 50},
	FieldTypeEmergencyContactPhone:        {Pattern: phonePattern},
	FieldTypeEmergencyContactRelationship: {Pattern: relationshipPattern, MinLength: 2, MaxLength: 30},
}

// Lookup returns the rule for a registered field type.
func Lookup(ft FieldType) (Rule, bool) {
	rule, ok := registry[ft]
	return rule, ok
}
