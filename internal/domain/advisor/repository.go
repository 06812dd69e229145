package advisor

import (
	"context"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// Repository defines the persistence contract for advisor profiles.
type Repository interface {
	// Create persists a new profile.
	// Returns shared.ErrAlreadyExists if the pre-registration already has one.
	Create(ctx context.Context, p *Profile) error

	// GetByPreregistration returns the profile for a pre-registration.
	// Returns shared.ErrProfileNotFound if none exists.
	GetByPreregistration(ctx context.Context, preregID shared.PreregistrationID) (*Profile, error)

	// Update persists profile changes (groups, documents, contact fields).
	// Returns shared.ErrProfileNotFound if the profile does not exist.
	Update(ctx context.Context, p *Profile) error
}
