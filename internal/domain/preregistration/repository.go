package preregistration

import (
	"context"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// Repository defines the persistence contract for pre-registrations.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create persists a new pre-registration.
	// Returns shared.ErrDuplicateContact if the contact is already registered.
	Create(ctx context.Context, p *PreRegistration) error

	// GetByID returns a pre-registration by ID.
	// Returns shared.ErrPreregistrationNotFound if it does not exist.
	GetByID(ctx context.Context, id shared.PreregistrationID) (*PreRegistration, error)

	// GetByContact returns a pre-registration by its contact identifier.
	// Returns shared.ErrPreregistrationNotFound if it does not exist.
	GetByContact(ctx context.Context, contact shared.Contact) (*PreRegistration, error)

	// UpdateStatus persists a status value. The store validates only enum
	// membership; transition legality is the entity's concern.
	// Returns shared.ErrPreregistrationNotFound if the record does not exist.
	UpdateStatus(ctx context.Context, id shared.PreregistrationID, status Status) error

	// UpdateIdentity persists corrected identity fields (admin path).
	UpdateIdentity(ctx context.Context, id shared.PreregistrationID, identity Identity) error

	// List returns pre-registrations, newest first.
	List(ctx context.Context, opts shared.Pagination) ([]*PreRegistration, error)

	// CountByStatus returns the number of pre-registrations per status.
	CountByStatus(ctx context.Context) (map[Status]int, error)
}
