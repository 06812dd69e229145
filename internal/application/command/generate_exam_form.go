package command

import (
	"context"

	"github.com/academy-hub/academy-platform/internal/domain/exam"
	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE EXAM FORM COMMAND
// Draws a randomized form from the question bank for one
// pre-registration and exam type. The persisted form instance is what a
// later submission is validated against.
// ══════════════════════════════════════════════════════════════════════════════

// GenerateExamFormCommand identifies the examinee and exam type.
type GenerateExamFormCommand struct {
	PreregistrationID string
	ExamType          string
}

// GenerateExamFormResult contains the served form (answer key omitted).
type GenerateExamFormResult struct {
	Form *exam.ServedForm
}

// GenerateExamFormHandler handles form generation.
type GenerateExamFormHandler struct {
	preregs preregistration.Repository
	bank    *exam.Bank
	log     *logger.Logger
}

// NewGenerateExamFormHandler creates the handler.
func NewGenerateExamFormHandler(preregs preregistration.Repository, bank *exam.Bank, log *logger.Logger) *GenerateExamFormHandler {
	return &GenerateExamFormHandler{preregs: preregs, bank: bank, log: log}
}

// Handle generates a form. Returns shared.ErrNoActiveQuestions when the
// pool for the exam type is empty.
func (h *GenerateExamFormHandler) Handle(ctx context.Context, cmd GenerateExamFormCommand) (*GenerateExamFormResult, error) {
	id, err := shared.NewPreregistrationID(cmd.PreregistrationID)
	if err != nil {
		return nil, err
	}
	examType, err := exam.ParseType(cmd.ExamType)
	if err != nil {
		return nil, err
	}

	// Gate on existence: forms are only served to known applicants.
	if _, err := h.preregs.GetByID(ctx, id); err != nil {
		return nil, err
	}

	form, err := h.bank.GenerateForm(ctx, id, examType)
	if err != nil {
		return nil, err
	}

	h.log.Info("exam form generated",
		logger.F("preregistration_id", id.String()),
		logger.F("exam_type", examType.String()),
		logger.F("form_id", form.FormID),
		logger.F("questions", len(form.Questions)),
	)
	return &GenerateExamFormResult{Form: form}, nil
}
