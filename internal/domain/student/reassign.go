package student

import (
	"context"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GROUP REASSIGNMENT SERVICE
// Bulk-reassigns matching students to an advisor when the advisor's
// primary group is set. Matching is normalization-safe: both sides of the
// comparison go through shared.Fold, because group labels and student
// group fields were historically entered with inconsistent case and
// encoding. A non-matching student is silently excluded, never an error.
// ══════════════════════════════════════════════════════════════════════════════

// ReassignmentService performs bulk student-to-advisor assignment.
type ReassignmentService struct {
	students Repository
	log      *logger.Logger
}

// NewReassignmentService creates a ReassignmentService.
func NewReassignmentService(students Repository, log *logger.Logger) *ReassignmentService {
	return &ReassignmentService{students: students, log: log}
}

// ReassignGroup assigns every unassigned student of the group to the
// advisor, by display name. The update runs as one atomic batch.
// Returns the number of students affected.
func (s *ReassignmentService) ReassignGroup(ctx context.Context, group shared.GroupLabel, advisorDisplayName string) (int64, error) {
	if advisorDisplayName == "" {
		return 0, shared.NewDomainError("student", "Reassign", shared.ErrEmptyValue, "advisor display name is required")
	}

	affected, err := s.students.BulkAssignAdvisor(ctx, group.Normalized(), advisorDisplayName)
	if err != nil {
		return 0, shared.WrapError("student", "Reassign", shared.ErrInvalidState, "bulk assignment failed", err)
	}

	s.log.Info("students reassigned to advisor",
		logger.F("group", group.String()),
		logger.F("advisor", advisorDisplayName),
		logger.F("affected", affected),
	)
	return affected, nil
}
