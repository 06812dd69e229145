package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-platform/internal/domain/assessment"
	"github.com/academy-hub/academy-platform/internal/domain/exam"
	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT EXAM COMMAND
// Grades a submitted answer set against the form instance that was
// actually served, merges the graded total into the current snapshot,
// and appends a "dynamic_<examtype>" history entry carrying the raw
// answers (and sub-scales for multi-dimensional exams).
// ══════════════════════════════════════════════════════════════════════════════

// SubmitExamCommand carries a completed answer set.
type SubmitExamCommand struct {
	PreregistrationID string
	ExamType          string
	Entries           []exam.AnswerEntry
}

// SubmitExamResult contains the graded outcome.
type SubmitExamResult struct {
	ExamType exam.Type
	Result   exam.GradeResult
	Totals   *assessment.Totals
	Version  int
}

// SubmitExamHandler handles exam submission and grading.
type SubmitExamHandler struct {
	preregs     preregistration.Repository
	forms       exam.FormRepository
	bank        *exam.Bank
	assessments assessment.Repository
	log         *logger.Logger
}

// NewSubmitExamHandler creates the handler.
func NewSubmitExamHandler(
	preregs preregistration.Repository,
	forms exam.FormRepository,
	bank *exam.Bank,
	assessments assessment.Repository,
	log *logger.Logger,
) *SubmitExamHandler {
	return &SubmitExamHandler{
		preregs:     preregs,
		forms:       forms,
		bank:        bank,
		assessments: assessments,
		log:         log,
	}
}

// Handle grades the submission. Entries referencing questions the form
// never served are dropped silently before grading: forms are generated
// server-side, so stray IDs carry no signal worth failing over.
func (h *SubmitExamHandler) Handle(ctx context.Context, cmd SubmitExamCommand) (*SubmitExamResult, error) {
	id, err := shared.NewPreregistrationID(cmd.PreregistrationID)
	if err != nil {
		return nil, err
	}
	examType, err := exam.ParseType(cmd.ExamType)
	if err != nil {
		return nil, err
	}

	prereg, err := h.preregs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	form, err := h.forms.GetLatest(ctx, id, examType)
	if err != nil {
		return nil, err
	}

	served := make([]exam.AnswerEntry, 0, len(cmd.Entries))
	for _, e := range cmd.Entries {
		if form.Contains(e.QuestionID) {
			served = append(served, e)
		}
	}

	graded, err := h.bank.Grade(ctx, served)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	totals, err := h.assessments.GetTotals(ctx, id)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, err
		}
		totals = &assessment.Totals{PreregistrationID: id}
	}
	totals.SetExamTotal(examType, graded.Total)
	totals.UpdatedAt = now

	if err := h.assessments.UpsertTotals(ctx, totals); err != nil {
		return nil, err
	}

	entry := &assessment.HistoryEntry{
		ID:                uuid.NewString(),
		PreregistrationID: id,
		Scenario:          assessment.ScenarioDynamic(examType),
		Totals:            *totals,
		RawAnswers:        served,
		CreatedAt:         now,
	}
	if examType.HasSubscales() && len(graded.Subscales) > 0 {
		entry.Subscales = &assessment.SubscaleDetail{ExamType: examType, Scales: graded.Subscales}
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

	h.log.Info("exam graded",
		logger.F("preregistration_id", id.String()),
		logger.F("exam_type", examType.String()),
		logger.F("score", graded.Total),
		logger.F("answered", len(served)),
		logger.F("version", entry.Version),
	)
	return &SubmitExamResult{ExamType: examType, Result: graded, Totals: totals, Version: entry.Version}, nil
}
