// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE PREREGISTRATION COMMAND
// Entry point of the onboarding pipeline: records a prospective advisor's
// initial application with status pending.
// ══════════════════════════════════════════════════════════════════════════════

// CreatePreregistrationCommand contains the data of an initial submission.
type CreatePreregistrationCommand struct {
	GivenName     string
	FamilyName    string
	Contact       string
	SpecialtyArea string
	Education     string
}

// CreatePreregistrationResult contains the created record.
type CreatePreregistrationResult struct {
	Preregistration *preregistration.PreRegistration
}

// CreatePreregistrationHandler handles the command.
type CreatePreregistrationHandler struct {
	preregs preregistration.Repository
	log     *logger.Logger
}

// NewCreatePreregistrationHandler creates the handler.
func NewCreatePreregistrationHandler(preregs preregistration.Repository, log *logger.Logger) *CreatePreregistrationHandler {
	return &CreatePreregistrationHandler{preregs: preregs, log: log}
}

// Handle validates the submission and creates a pending pre-registration.
// Returns shared.ErrDuplicateContact when the contact is already registered.
func (h *CreatePreregistrationHandler) Handle(ctx context.Context, cmd CreatePreregistrationCommand) (*CreatePreregistrationResult, error) {
	contact, err := shared.NewContact(cmd.Contact)
	if err != nil {
		return nil, err
	}

	identity := preregistration.Identity{
		GivenName:     cmd.GivenName,
		FamilyName:    cmd.FamilyName,
		Contact:       contact,
		SpecialtyArea: cmd.SpecialtyArea,
		Education:     cmd.Education,
	}

	id := shared.PreregistrationID(uuid.NewString())
	prereg, err := preregistration.New(id, identity, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := h.preregs.Create(ctx, prereg); err != nil {
		return nil, err
	}

	h.log.Info("preregistration created",
		logger.F("preregistration_id", prereg.ID.String()),
		logger.F("specialty", prereg.Identity.SpecialtyArea),
	)
	return &CreatePreregistrationResult{Preregistration: prereg}, nil
}
