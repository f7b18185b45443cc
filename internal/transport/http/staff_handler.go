package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	validationModels "garrison/internal/validation/models"
	id "garrison/pkg/domain"
	dErrors "garrison/pkg/domain-errors"
	audit "garrison/pkg/platform/audit"
	"garrison/pkg/platform/httputil"
)

// Validator is the subset of the validation engine the handler needs.
type Validator interface {
	ValidateRecord(ctx context.Context, fields map[string]string) validationModels.RecordResult
}

// Auditor records finalized audit events. Satisfied by the audit recorder.
type Auditor interface {
	SecurityAuditor
	Record(ctx context.Context, event audit.Event) (audit.Event, error)
}

// StaffHandler serves staff-record mutations. It runs the full gate chain:
// the router wires auth, CSRF and rate limiting in front; the handler itself
// validates the payload and writes the audit trail.
type StaffHandler struct {
	validator Validator
	auditor   Auditor
	logger    *slog.Logger
}

// NewStaffHandler creates the handler.
func NewStaffHandler(validator Validator, auditor Auditor, logger *slog.Logger) (*StaffHandler, error) {
	if validator == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "validator is required")
	}
	if auditor == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "auditor is required")
	}
	return &StaffHandler{validator: validator, auditor: auditor, logger: logger}, nil
}

// UpdateProfileRequest is the mutation payload: candidate field values keyed
// by field type, plus the previous values for the audit trail.
type UpdateProfileRequest struct {
	Fields    map[string]string `json:"fields"`
	OldValues map[string]string `json:"old_values,omitempty"`
}

// Validate implements httputil.Validatable.
func (r *UpdateProfileRequest) Validate() error {
	if len(r.Fields) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "fields must not be empty")
	}
	if len(r.Fields) > 64 {
		return dErrors.New(dErrors.CodeBadRequest, "too many fields in one request")
	}
	return nil
}

// UpdateProfileResponse reports the validation outcome. Accepted mutations
// echo the sanitized values the caller should persist.
type UpdateProfileResponse struct {
	Result validationModels.RecordResult `json:"result"`
}

// HandleUpdateProfile validates a staff profile mutation and records one
// audit event per accepted field change.
func (h *StaffHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	staffID, err := id.ParseStaffID(chi.URLParam(r, "staffID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r, h.logger)
	if !ok {
		return
	}

	result := h.validator.ValidateRecord(ctx, req.Fields)

	if threatened := threatFields(result); len(threatened) > 0 {
		for _, field := range threatened {
			_, _ = h.auditor.RecordSecurity(ctx, audit.ActionThreatDetected,
				audit.ResourceStaff, staffID.String(), "injection pattern in field "+field, true)
		}
	}

	if !result.Valid {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, UpdateProfileResponse{Result: result})
		return
	}

	// One event per field keeps the trail diffable. A failed append is a
	// defect the operator must see, but it never blocks the mutation.
	for field, fieldResult := range result.Fields {
		_, err := h.auditor.Record(ctx, audit.Event{
			ResourceType: audit.ResourceStaff,
			ResourceID:   staffID.String(),
			Action:       audit.ActionUpdate,
			FieldName:    field,
			OldValue:     req.OldValues[field],
			NewValue:     fieldResult.SanitizedValue,
		})
		if err != nil {
			h.logger.ErrorContext(ctx, "audit append failed for staff mutation",
				"staff_id", staffID.String(),
				"field", field,
				"error", err,
			)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, UpdateProfileResponse{Result: result})
}

// threatFields lists fields whose value tripped the injection scanner.
func threatFields(result validationModels.RecordResult) []string {
	var fields []string
	for name, fieldResult := range result.Fields {
		for _, fieldErr := range fieldResult.Errors {
			if fieldErr.Message == validationModels.ThreatMessage {
				fields = append(fields, name)
				break
			}
		}
	}
	return fields
}
