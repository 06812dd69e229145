package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-platform/internal/domain/advisor"
	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/internal/domain/student"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET GROUPS COMMAND
// Assigns group labels to an advisor profile. The singular group field
// always mirrors the first element of the list. When the primary group
// changes, matching unassigned students are bulk-reassigned to the
// advisor by display name.
// ══════════════════════════════════════════════════════════════════════════════

// SetGroupsCommand carries the requested group labels.
type SetGroupsCommand struct {
	PreregistrationID string
	Groups            []string
}

// SetGroupsResult contains the persisted groups and reassignment count.
type SetGroupsResult struct {
	Groups             []shared.GroupLabel
	PrimaryGroup       shared.GroupLabel
	StudentsReassigned int64
}

// SetGroupsHandler handles group assignment.
type SetGroupsHandler struct {
	preregs    preregistration.Repository
	profiles   advisor.Repository
	reassigner *student.ReassignmentService
	log        *logger.Logger
}

// NewSetGroupsHandler creates the handler.
func NewSetGroupsHandler(
	preregs preregistration.Repository,
	profiles advisor.Repository,
	reassigner *student.ReassignmentService,
	log *logger.Logger,
) *SetGroupsHandler {
	return &SetGroupsHandler{preregs: preregs, profiles: profiles, reassigner: reassigner, log: log}
}

// Handle validates, deduplicates, and persists the group list, then
// triggers bulk reassignment when the primary group changed. Returns
// shared.ErrNoValidGroups when nothing survives filtering.
func (h *SetGroupsHandler) Handle(ctx context.Context, cmd SetGroupsCommand) (*SetGroupsResult, error) {
	id, err := shared.NewPreregistrationID(cmd.PreregistrationID)
	if err != nil {
		return nil, err
	}

	prereg, err := h.preregs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	groups := shared.DedupGroupLabels(cmd.Groups)
	if len(groups) == 0 {
		return nil, shared.ErrNoValidGroups
	}

	now := time.Now().UTC()
	profile, err := h.profiles.GetByPreregistration(ctx, id)
	created := false
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, err
		}
		profile = &advisor.Profile{
			ID:                uuid.NewString(),
			PreregistrationID: id,
			CreatedAt:         now,
		}
		created = true
	}

	previousPrimary := profile.PrimaryGroup()
	if err := profile.SetGroups(groups, now); err != nil {
		return nil, err
	}

	if created {
		if err := h.profiles.Create(ctx, profile); err != nil {
			return nil, err
		}
	} else {
		if err := h.profiles.Update(ctx, profile); err != nil {
			return nil, err
		}
	}

	result := &SetGroupsResult{Groups: groups, PrimaryGroup: profile.Group}

	// Reassign only when the primary group actually changed; re-saving
	// the same list must not touch the roster again.
	if profile.Group.Normalized() != previousPrimary.Normalized() {
		affected, err := h.reassigner.ReassignGroup(ctx, profile.Group, prereg.Identity.DisplayName())
		if err != nil {
			return nil, err
		}
		result.StudentsReassigned = affected
	}

	h.log.Info("advisor groups updated",
		logger.F("preregistration_id", id.String()),
		logger.F("primary_group", profile.Group.String()),
		logger.F("group_count", len(groups)),
		logger.F("students_reassigned", result.StudentsReassigned),
	)
	return result, nil
}
