package assessment

import (
	"context"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// Repository defines the persistence contract for assessment totals and
// history. Implementations must assign history versions so that two
// concurrent appends for the same pre-registration never produce the
// same version: a UNIQUE(preregistration_id, version) constraint plus a
// bounded retry on conflict, not read-max-then-insert.
type Repository interface {
	// UpsertTotals writes the current totals row for a pre-registration,
	// overwriting any previous snapshot. Does not touch history.
	UpsertTotals(ctx context.Context, totals *Totals) error

	// GetTotals returns the current totals snapshot.
	// Returns shared.ErrAssessmentNotFound if no scoring event happened yet.
	GetTotals(ctx context.Context, preregID shared.PreregistrationID) (*Totals, error)

	// AppendHistory inserts an immutable history entry, assigning the
	// next version for the pre-registration. The entry's Version field
	// is ignored on input and populated on return.
	AppendHistory(ctx context.Context, entry *HistoryEntry) error

	// ListHistory returns history entries for a pre-registration,
	// newest version first.
	ListHistory(ctx context.Context, preregID shared.PreregistrationID, opts shared.Pagination) ([]*HistoryEntry, error)

	// GetLatestSubscales scans history newest-first for the most recent
	// entry carrying a sub-scale breakdown. Returns nil (no error) when
	// no entry carries one.
	GetLatestSubscales(ctx context.Context, preregID shared.PreregistrationID) (*SubscaleDetail, error)
}
