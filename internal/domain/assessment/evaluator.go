package assessment

// ══════════════════════════════════════════════════════════════════════════════
// APPROVAL EVALUATION
// Pure threshold rule mapping a totals snapshot to approve/reject.
// The thresholds are a stable external contract.
// ══════════════════════════════════════════════════════════════════════════════

// Approval thresholds.
const (
	// MinWAISTotal - WAIS-type total must reach this value.
	MinWAISTotal = 150
	// MinAcademicTotal - academic total must reach this value.
	MinAcademicTotal = 160
	// MinValuesTotal - values-inventory total must exceed this value (strict).
	MinValuesTotal = 80
	// MinMathTotal - math total must reach this value when present.
	// Absence of the optional math score does not block approval.
	MinMathTotal = 60
)

// ApproveWhenUnscored preserves the historical intake behavior: an
// advisor with no recorded totals at all passes evaluation. Callers must
// log loudly when this branch fires; see DESIGN.md for the decision.
const ApproveWhenUnscored = true

// Decision is the structured outcome of an evaluation. FailedChecks is
// empty when approved; otherwise it names each rule the totals missed so
// the caller can explain the gap.
type Decision struct {
	Approved     bool     `json:"approved"`
	Unscored     bool     `json:"unscored"`
	FailedChecks []string `json:"failed_checks,omitempty"`
}

// Evaluate applies the approval rule to a totals snapshot. The advisor is
// approved iff every required threshold is met. A nil snapshot means no
// scoring event ever happened; see ApproveWhenUnscored.
func Evaluate(totals *Totals) Decision {
	if totals == nil {
		return Decision{Approved: ApproveWhenUnscored, Unscored: true}
	}

	var failed []string
	if totals.WAIS < MinWAISTotal {
		failed = append(failed, "wais_total_below_150")
	}
	if totals.Academic < MinAcademicTotal {
		failed = append(failed, "academic_total_below_160")
	}
	if totals.Values <= MinValuesTotal {
		failed = append(failed, "values_total_not_above_80")
	}
	if totals.Math != nil && *totals.Math < MinMathTotal {
		failed = append(failed, "math_total_below_60")
	}

	return Decision{Approved: len(failed) == 0, FailedChecks: failed}
}
