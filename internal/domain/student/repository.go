package student

import (
	"context"
)

// Repository defines the roster operations the pipeline needs.
type Repository interface {
	// BulkAssignAdvisor assigns advisorName to every student whose
	// normalized group equals groupNormalized and whose current advisor
	// is NULL, empty, or the unassigned placeholder. Executes as a
	// single atomic statement so readers never observe a partially
	// updated group. Returns the number of students updated.
	BulkAssignAdvisor(ctx context.Context, groupNormalized, advisorName string) (int64, error)

	// ListByGroup returns students in a normalized group.
	ListByGroup(ctx context.Context, groupNormalized string) ([]*Student, error)

	// CountByGroup aggregates roster sizes and assignment counts per
	// group label for the admin listing endpoint.
	CountByGroup(ctx context.Context) ([]GroupCount, error)
}
