package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-platform/internal/domain/assessment"
	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD SCORES COMMAND
// Manual score entry: an admin records totals from externally
// administered tests. Upserts the current snapshot and appends a
// "manual" history entry. The first scoring event moves the
// pre-registration from pending to testing.
// ══════════════════════════════════════════════════════════════════════════════

// RecordScoresCommand carries manually entered totals.
type RecordScoresCommand struct {
	PreregistrationID string
	WAIS              int
	Academic          int
	Values            int
	Math              *int
	Personality       *int
}

// Validate validates the command.
func (c RecordScoresCommand) Validate() error {
	if c.PreregistrationID == "" {
		return shared.NewDomainError("command", "RecordScores", shared.ErrEmptyValue, "preregistration_id is required")
	}
	if c.WAIS < 0 || c.Academic < 0 || c.Values < 0 {
		return shared.NewDomainError("command", "RecordScores", shared.ErrInvalidInput, "totals cannot be negative")
	}
	if c.Math != nil && *c.Math < 0 {
		return shared.NewDomainError("command", "RecordScores", shared.ErrInvalidInput, "math total cannot be negative")
	}
	if c.Personality != nil && *c.Personality < 0 {
		return shared.NewDomainError("command", "RecordScores", shared.ErrInvalidInput, "personality total cannot be negative")
	}
	return nil
}

// RecordScoresResult contains the recorded snapshot and history version.
type RecordScoresResult struct {
	Totals  *assessment.Totals
	Version int
}

// RecordScoresHandler handles manual score entry.
type RecordScoresHandler struct {
	preregs     preregistration.Repository
	assessments assessment.Repository
	log         *logger.Logger
}

// NewRecordScoresHandler creates the handler.
func NewRecordScoresHandler(preregs preregistration.Repository, assessments assessment.Repository, log *logger.Logger) *RecordScoresHandler {
	return &RecordScoresHandler{preregs: preregs, assessments: assessments, log: log}
}

// Handle records the totals.
func (h *RecordScoresHandler) Handle(ctx context.Context, cmd RecordScoresCommand) (*RecordScoresResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	id, err := shared.NewPreregistrationID(cmd.PreregistrationID)
	if err != nil {
		return nil, err
	}

	prereg, err := h.preregs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	totals := &assessment.Totals{
		PreregistrationID: id,
		WAIS:              cmd.WAIS,
		Academic:          cmd.Academic,
		Values:            cmd.Values,
		Math:              cmd.Math,
		Personality:       cmd.Personality,
		UpdatedAt:         now,
	}

	if err := h.assessments.UpsertTotals(ctx, totals); err != nil {
		return nil, err
	}

	entry := &assessment.HistoryEntry{
		ID:                uuid.NewString(),
		PreregistrationID: id,
		Scenario:          assessment.ScenarioManual,
		Totals:            *totals,
		CreatedAt:         now,
	}
	if err := h.assessments.AppendHistory(ctx, entry); err != nil {
		return nil, err
	}

	if err := prereg.EnsureTesting(now); err != nil {
		return nil, err
	}
	if prereg.Status == preregistration.StatusTesting {
		if err := h.preregs.UpdateStatus(ctx, id, prereg.Status); err != nil {
			return nil, err
		}
	}

	h.log.Info("manual scores recorded",
		logger.F("preregistration_id", id.String()),
		logger.F("version", entry.Version),
	)
	return &RecordScoresResult{Totals: totals, Version: entry.Version}, nil
}
