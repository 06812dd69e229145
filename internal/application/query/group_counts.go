package query

import (
	"context"

	"github.com/academy-hub/academy-platform/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GROUP COUNTS QUERY
// Read-only aggregation for the admin listing: roster size and assigned
// count per group label.
// ══════════════════════════════════════════════════════════════════════════════

// GroupCountsHandler handles the query.
type GroupCountsHandler struct {
	students student.Repository
}

// NewGroupCountsHandler creates the handler.
func NewGroupCountsHandler(students student.Repository) *GroupCountsHandler {
	return &GroupCountsHandler{students: students}
}

// Handle returns per-group student counts.
func (h *GroupCountsHandler) Handle(ctx context.Context) ([]student.GroupCount, error) {
	return h.students.CountByGroup(ctx)
}
