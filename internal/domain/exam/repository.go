package exam

import (
	"context"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// QuestionRepository defines the persistence contract for the question
// bank. The pipeline only reads questions; pool maintenance happens
// through a separate admin path.
type QuestionRepository interface {
	// ListActive returns all active questions of an exam type, options included.
	ListActive(ctx context.Context, examType Type) ([]Question, error)

	// GetByIDs returns questions (with options) for the given IDs.
	// Unknown IDs are omitted, not an error.
	GetByIDs(ctx context.Context, ids []string) ([]Question, error)

	// CountActive returns the active pool size per exam type.
	CountActive(ctx context.Context) (map[Type]int, error)
}

// FormRepository defines the persistence contract for form instances.
type FormRepository interface {
	// Create persists a generated form instance.
	Create(ctx context.Context, form *FormInstance) error

	// GetLatest returns the most recently generated form for a
	// pre-registration and exam type.
	// Returns shared.ErrFormNotFound if none was generated.
	GetLatest(ctx context.Context, preregID shared.PreregistrationID, examType Type) (*FormInstance, error)
}
