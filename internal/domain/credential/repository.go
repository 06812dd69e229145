package credential

import (
	"context"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// Repository defines the persistence contract for credentials.
// Handle uniqueness is a store-level UNIQUE constraint: Issue reports
// shared.ErrHandleTaken on collision and the caller retries with the
// next suffix candidate, instead of a check-then-insert race.
type Repository interface {
	// Issue atomically persists the credential, links it to the
	// advisor's profile when one exists, and moves the pre-registration
	// to completed. All-or-nothing: a failure at any step leaves no
	// half-issued credential behind.
	// Returns shared.ErrHandleTaken when the handle is already in use,
	// shared.ErrAlreadyIssued when the advisor already has a credential.
	Issue(ctx context.Context, cred *Credential) error

	// GetByPreregistration returns the issued credential for an advisor.
	// Returns shared.ErrCredentialNotFound if none was issued.
	GetByPreregistration(ctx context.Context, preregID shared.PreregistrationID) (*Credential, error)

	// GetByHandle returns a credential by its unique handle.
	// Returns shared.ErrCredentialNotFound if it does not exist.
	GetByHandle(ctx context.Context, handle string) (*Credential, error)
}
