package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "garrison/pkg/domain-errors"
	audit "garrison/pkg/platform/audit"
	"garrison/pkg/platform/httputil"
	"garrison/pkg/requestcontext"
)

const defaultAuditPageSize = 50

// AuditReader lists persisted audit events. Satisfied by both audit stores.
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// AdminHandler serves operator endpoints. The router gates it behind the
// admin token middleware.
type AdminHandler struct {
	reader  AuditReader
	auditor Auditor
	logger  *slog.Logger
}

// NewAdminHandler creates the handler.
func NewAdminHandler(reader AuditReader, auditor Auditor, logger *slog.Logger) (*AdminHandler, error) {
	if reader == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit reader is required")
	}
	if auditor == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "auditor is required")
	}
	return &AdminHandler{reader: reader, auditor: auditor, logger: logger}, nil
}

type auditEventView struct {
	ID           string `json:"id"`
	Category     string `json:"category"`
	Timestamp    string `json:"timestamp"`
	ActorID      string `json:"actor_id,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id,omitempty"`
	Action       string `json:"action"`
	FieldName    string `json:"field_name,omitempty"`
	OldValue     string `json:"old_value,omitempty"`
	NewValue     string `json:"new_value,omitempty"`
	Failed       bool   `json:"failed,omitempty"`
	Details      string `json:"details,omitempty"`
	Severity     string `json:"severity"`
	RiskScore    int    `json:"risk_score"`
}

type listAuditEventsResponse struct {
	Events []auditEventView `json:"events"`
}

// HandleListAuditEvents returns the most recent audit events, oldest first.
// The read itself lands on the trail so operator access stays accountable.
func (h *AdminHandler) HandleListAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultAuditPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer between 1 and 500"))
			return
		}
		limit = parsed
	}

	events, err := h.reader.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list audit events"))
		return
	}

	_, _ = h.auditor.Record(ctx, audit.Event{
		Category:     audit.CategorySecurity,
		ResourceType: audit.ResourceStaff,
		Action:       audit.ActionList,
		Details:      "admin audit listing",
	})

	views := make([]auditEventView, 0, len(events))
	for _, event := range events {
		views = append(views, toAuditEventView(event))
	}
	httputil.WriteJSON(w, http.StatusOK, listAuditEventsResponse{Events: views})
}

func toAuditEventView(event audit.Event) auditEventView {
	view := auditEventView{
		ID:           event.ID.String(),
		Category:     string(event.Category),
		Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
		IPAddress:    event.IPAddress,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Action:       event.Action,
		FieldName:    event.FieldName,
		OldValue:     event.OldValue,
		NewValue:     event.NewValue,
		Failed:       event.Failed,
		Details:      event.Details,
		Severity:     string(event.Severity),
		RiskScore:    event.RiskScore,
	}
	if !event.ActorID.IsNil() {
		view.ActorID = event.ActorID.String()
	}
	return view
}
