// Package student contains the minimal roster model the pipeline touches:
// students are matched by group label and bulk-assigned to an advisor
// when the advisor's first group is set. Everything else about students
// lives in the portal's own modules.
package student

import (
	"time"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// UnassignedPlaceholder is the legacy advisor value some imported roster
// rows carry instead of NULL. Reassignment treats it as unassigned.
const UnassignedPlaceholder = "SIN ASESOR"

// Student is a roster record as seen by the reassignment service.
//
// GroupNormalized is the shared.Fold form of GroupLabel, written on every
// group write so bulk matching never depends on database collation.
type Student struct {
	ID              string
	FullName        string
	GroupLabel      string
	GroupNormalized string
	AdvisorName     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsUnassigned reports whether the student has no effective advisor.
func (s *Student) IsUnassigned() bool {
	trimmed := shared.Fold(s.AdvisorName)
	return trimmed == "" || trimmed == shared.Fold(UnassignedPlaceholder)
}

// GroupCount is a per-group aggregation row for admin listings.
type GroupCount struct {
	Group    string `json:"group"`
	Students int    `json:"students"`
	Assigned int    `json:"assigned"`
}
