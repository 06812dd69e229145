// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"

	"github.com/academy-hub/academy-platform/internal/domain/assessment"
	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ASSESSMENT DETAIL QUERY
// Returns the current totals enriched with the most recent sub-scale
// breakdown found in history. Not every scoring event supplies one, so
// the current snapshot alone is insufficient.
// ══════════════════════════════════════════════════════════════════════════════

// GetAssessmentDetailHandler handles the query.
type GetAssessmentDetailHandler struct {
	preregs     preregistration.Repository
	assessments assessment.Repository
}

// NewGetAssessmentDetailHandler creates the handler.
func NewGetAssessmentDetailHandler(preregs preregistration.Repository, assessments assessment.Repository) *GetAssessmentDetailHandler {
	return &GetAssessmentDetailHandler{preregs: preregs, assessments: assessments}
}

// Handle returns the enriched detail. A pre-registration with no scoring
// events yet yields a detail with nil Totals, not an error.
func (h *GetAssessmentDetailHandler) Handle(ctx context.Context, preregID string) (*assessment.Detail, error) {
	id, err := shared.NewPreregistrationID(preregID)
	if err != nil {
		return nil, err
	}
	if _, err := h.preregs.GetByID(ctx, id); err != nil {
		return nil, err
	}

	detail := &assessment.Detail{}

	totals, err := h.assessments.GetTotals(ctx, id)
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	detail.Totals = totals

	subscales, err := h.assessments.GetLatestSubscales(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Subscales = subscales

	return detail, nil
}
