// Package assessment contains the scoring domain: the current totals
// snapshot per pre-registration, the append-only versioned history of
// every scoring event, and the approval evaluation rule.
package assessment

import (
	"time"

	"github.com/academy-hub/academy-platform/internal/domain/exam"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOTALS SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Totals is the current total score per exam type for one
// pre-registration. Math and Personality are optional: nil means the exam
// was never taken or recorded. The row is upserted on every scoring
// event; history, not this row, is the audit trail.
type Totals struct {
	PreregistrationID shared.PreregistrationID
	WAIS              int
	Academic          int
	Values            int
	Math              *int
	Personality       *int
	UpdatedAt         time.Time
}

// SetExamTotal merges a single graded exam total into the snapshot.
func (t *Totals) SetExamTotal(examType exam.Type, total int) {
	switch examType {
	case exam.TypeWAIS:
		t.WAIS = total
	case exam.TypeAcademic:
		t.Academic = total
	case exam.TypeValues:
		t.Values = total
	case exam.TypeMath:
		t.Math = &total
	case exam.TypePersonality:
		t.Personality = &total
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// ScenarioType tags the scoring event that produced a history entry.
type ScenarioType string

const (
	// ScenarioManual - totals entered by hand from an externally
	// administered test.
	ScenarioManual ScenarioType = "manual"
	// ScenarioFinalizationFailed - a finalize attempt that evaluated to
	// not approved.
	ScenarioFinalizationFailed ScenarioType = "finalization_attempt_failed"
	// ScenarioFinalizationApproved - a finalize attempt that issued
	// credentials.
	ScenarioFinalizationApproved ScenarioType = "finalization_approved"
)

// ScenarioDynamic tags a grading event of a server-generated exam form,
// e.g. "dynamic_wais".
func ScenarioDynamic(examType exam.Type) ScenarioType {
	return ScenarioType("dynamic_" + examType.String())
}

// SubscaleDetail is the typed sub-scale breakdown carried by history
// entries for exams that report more than one dimension. Absent for
// single-total events.
type SubscaleDetail struct {
	ExamType exam.Type       `json:"exam_type"`
	Scales   []exam.Subscale `json:"scales"`
}

// HistoryEntry is one immutable scoring event. Version is strictly
// increasing per pre-registration and never reused, even across failed
// finalization attempts; together the entries are the full audit trail.
type HistoryEntry struct {
	ID                string
	PreregistrationID shared.PreregistrationID
	Version           int
	Scenario          ScenarioType
	Totals            Totals
	// RawAnswers holds the submitted answer set for dynamic grading
	// events. Nil for manual entries and finalization attempts.
	RawAnswers []exam.AnswerEntry
	// Subscales holds the dimension breakdown for multi-dimensional
	// exams. Nil when the event carries no such detail.
	Subscales *SubscaleDetail
	CreatedAt time.Time
}

// Detail is the enriched read model returned by latest-detail queries:
// the current totals plus the most recent sub-scale breakdown found in
// history, since not every scoring event supplies one.
type Detail struct {
	Totals    *Totals
	Subscales *SubscaleDetail
}
