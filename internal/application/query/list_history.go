package query

import (
	"context"

	"github.com/academy-hub/academy-platform/internal/domain/assessment"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST HISTORY QUERY
// The full audit trail of scoring events for one pre-registration,
// newest version first.
// ══════════════════════════════════════════════════════════════════════════════

// ListHistoryHandler handles the query.
type ListHistoryHandler struct {
	assessments assessment.Repository
}

// NewListHistoryHandler creates the handler.
func NewListHistoryHandler(assessments assessment.Repository) *ListHistoryHandler {
	return &ListHistoryHandler{assessments: assessments}
}

// Handle returns history entries for a pre-registration.
func (h *ListHistoryHandler) Handle(ctx context.Context, preregID string, page, pageSize int) ([]*assessment.HistoryEntry, error) {
	id, err := shared.NewPreregistrationID(preregID)
	if err != nil {
		return nil, err
	}
	return h.assessments.ListHistory(ctx, id, shared.NewPagination(page, pageSize))
}
