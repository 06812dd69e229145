// Package exam contains the question bank domain: reusable per-type
// question pools, randomized form instances, and answer grading.
package exam

import (
	"strings"
	"time"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXAM TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Type identifies one of the scored exam types in the assessment battery.
type Type string

const (
	// TypeWAIS - cognitive assessment (WAIS-type).
	TypeWAIS Type = "wais"
	// TypeAcademic - academic knowledge assessment.
	TypeAcademic Type = "academic"
	// TypeValues - values inventory (ZAVIC-type), reports sub-scales.
	TypeValues Type = "values"
	// TypeMath - optional math assessment.
	TypeMath Type = "math"
	// TypePersonality - personality inventory, reports sub-scales.
	TypePersonality Type = "personality"
)

// formSizes is the number of questions drawn per generated form.
var formSizes = map[Type]int{
	TypeWAIS:        25,
	TypeAcademic:    25,
	TypeValues:      20,
	TypeMath:        20,
	TypePersonality: 20,
}

// IsValid checks that the exam type is known.
func (t Type) IsValid() bool {
	_, ok := formSizes[t]
	return ok
}

// String returns the string representation.
func (t Type) String() string {
	return string(t)
}

// FormSize returns how many questions a generated form of this type holds.
func (t Type) FormSize() int {
	return formSizes[t]
}

// HasSubscales reports whether this exam type scores more than one
// dimension. Sub-scale breakdowns are recorded in assessment history for
// these types only.
func (t Type) HasSubscales() bool {
	return t == TypeValues || t == TypePersonality
}

// ParseType parses an exam type string.
func ParseType(value string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(value)))
	if !t.IsValid() {
		return "", shared.ErrUnknownExamType
	}
	return t, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUESTION BANK ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Option is one answer choice of a bank question. The Correct flag never
// leaves the server: served forms carry ServedOption instead.
type Option struct {
	ID      string
	Text    string
	Correct bool
}

// Question is a reusable bank question. Immutable once referenced by a
// form instance; forms snapshot question IDs, not live content.
type Question struct {
	ID       string
	ExamType Type
	Text     string
	Points   int
	// Scale names the sub-dimension this question contributes to, for
	// exam types that report sub-scales. Empty otherwise.
	Scale   string
	Active  bool
	Options []Option
}

// CorrectOptionID returns the ID of the correct option, or "" if none.
func (q Question) CorrectOptionID() string {
	for _, o := range q.Options {
		if o.Correct {
			return o.ID
		}
	}
	return ""
}

// ══════════════════════════════════════════════════════════════════════════════
// FORM INSTANCES
// ══════════════════════════════════════════════════════════════════════════════

// FormInstance records exactly which question IDs were drawn for one
// pre-registration and exam type, so the grading call can be validated
// against the set actually presented.
type FormInstance struct {
	ID                string
	PreregistrationID shared.PreregistrationID
	ExamType          Type
	QuestionIDs       []string
	GeneratedAt       time.Time
}

// Contains reports whether the form served the given question.
func (f *FormInstance) Contains(questionID string) bool {
	for _, id := range f.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// ServedOption is an option as exposed to the examinee: no Correct flag.
type ServedOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ServedQuestion is a question as exposed to the examinee.
type ServedQuestion struct {
	ID      string         `json:"id"`
	Text    string         `json:"text"`
	Options []ServedOption `json:"options"`
}

// ServedForm is the payload returned by form generation.
type ServedForm struct {
	FormID            string           `json:"form_id"`
	PreregistrationID string           `json:"preregistration_id"`
	ExamType          Type             `json:"exam_type"`
	Questions         []ServedQuestion `json:"questions"`
}

// AnswerEntry pairs a served question with the chosen option.
type AnswerEntry struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

// Subscale is one scored sub-dimension of a multi-dimensional exam.
type Subscale struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// GradeResult is the outcome of grading a submitted answer set.
type GradeResult struct {
	Total     int
	Subscales []Subscale
}
