package exam

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ──────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeQuestionSource struct {
	pools map[Type][]Question
}

func (f *fakeQuestionSource) ListActive(_ context.Context, examType Type) ([]Question, error) {
	return f.pools[examType], nil
}

func (f *fakeQuestionSource) GetByIDs(_ context.Context, ids []string) ([]Question, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Question
	for _, pool := range f.pools {
		for _, q := range pool {
			if want[q.ID] {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

type fakeFormRepo struct {
	created []*FormInstance
}

func (f *fakeFormRepo) Create(_ context.Context, form *FormInstance) error {
	f.created = append(f.created, form)
	return nil
}

func (f *fakeFormRepo) GetLatest(_ context.Context, preregID shared.PreregistrationID, examType Type) (*FormInstance, error) {
	for i := len(f.created) - 1; i >= 0; i-- {
		form := f.created[i]
		if form.PreregistrationID == preregID && form.ExamType == examType {
			return form, nil
		}
	}
	return nil, shared.ErrFormNotFound
}

func makePool(examType Type, n int, scale string) []Question {
	pool := make([]Question, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, Question{
			ID:       fmt.Sprintf("%s-q%d", examType, i),
			ExamType: examType,
			Text:     fmt.Sprintf("question %d", i),
			Points:   4,
			Scale:    scale,
			Active:   true,
			Options: []Option{
				{ID: fmt.Sprintf("%s-q%d-a", examType, i), Text: "a", Correct: true},
				{ID: fmt.Sprintf("%s-q%d-b", examType, i), Text: "b"},
			},
		})
	}
	return pool
}

func newTestBank(pools map[Type][]Question) (*Bank, *fakeFormRepo) {
	forms := &fakeFormRepo{}
	bank := NewBankWithRand(&fakeQuestionSource{pools: pools}, forms, rand.New(rand.NewSource(1)))
	return bank, forms
}

const testPreregID = shared.PreregistrationID("11111111-2222-3333-4444-555555555555")

// ──────────────────────────────────────────────────────────────────────────────
// Form generation
// ──────────────────────────────────────────────────────────────────────────────

func TestGenerateForm_DrawsFormSizeQuestions(t *testing.T) {
	bank, forms := newTestBank(map[Type][]Question{
		TypeWAIS: makePool(TypeWAIS, 40, ""),
	})

	served, err := bank.GenerateForm(context.Background(), testPreregID, TypeWAIS)
	require.NoError(t, err)

	assert.Len(t, served.Questions, TypeWAIS.FormSize())
	require.Len(t, forms.created, 1)
	assert.Len(t, forms.created[0].QuestionIDs, TypeWAIS.FormSize())

	// No duplicates: the draw is without replacement.
	seen := map[string]bool{}
	for _, id := range forms.created[0].QuestionIDs {
		assert.False(t, seen[id], "question %s drawn twice", id)
		seen[id] = true
	}
}

func TestGenerateForm_SmallPoolServedWhole(t *testing.T) {
	bank, _ := newTestBank(map[Type][]Question{
		TypeMath: makePool(TypeMath, 7, ""),
	})

	served, err := bank.GenerateForm(context.Background(), testPreregID, TypeMath)
	require.NoError(t, err)
	assert.Len(t, served.Questions, 7)
}

func TestGenerateForm_EmptyPool(t *testing.T) {
	bank, _ := newTestBank(map[Type][]Question{})

	_, err := bank.GenerateForm(context.Background(), testPreregID, TypeValues)
	assert.ErrorIs(t, err, shared.ErrNoActiveQuestions)
}

func TestGenerateForm_UnknownType(t *testing.T) {
	bank, _ := newTestBank(map[Type][]Question{})

	_, err := bank.GenerateForm(context.Background(), testPreregID, Type("essay"))
	assert.ErrorIs(t, err, shared.ErrUnknownExamType)
}

func TestGenerateForm_NeverLeaksAnswerKey(t *testing.T) {
	bank, _ := newTestBank(map[Type][]Question{
		TypeAcademic: makePool(TypeAcademic, 30, ""),
	})

	served, err := bank.GenerateForm(context.Background(), testPreregID, TypeAcademic)
	require.NoError(t, err)

	for _, q := range served.Questions {
		assert.NotEmpty(t, q.Options)
		// ServedOption has no Correct field at all; verify the option set
		// still covers every bank option so nothing was filtered instead.
		assert.Len(t, q.Options, 2)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Grading
// ──────────────────────────────────────────────────────────────────────────────

func TestGrade_SumsCorrectAnswers(t *testing.T) {
	pool := makePool(TypeWAIS, 4, "")
	bank, _ := newTestBank(map[Type][]Question{TypeWAIS: pool})

	entries := []AnswerEntry{
		{QuestionID: pool[0].ID, OptionID: pool[0].Options[0].ID}, // correct
		{QuestionID: pool[1].ID, OptionID: pool[1].Options[1].ID}, // wrong
		{QuestionID: pool[2].ID, OptionID: pool[2].Options[0].ID}, // correct
	}

	result, err := bank.Grade(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, 8, result.Total)
	assert.Empty(t, result.Subscales)
}

func TestGrade_EmptySubmissionScoresZero(t *testing.T) {
	bank, _ := newTestBank(map[Type][]Question{})

	result, err := bank.Grade(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
}

func TestGrade_UnknownQuestionIDsSkippedSilently(t *testing.T) {
	pool := makePool(TypeWAIS, 2, "")
	bank, _ := newTestBank(map[Type][]Question{TypeWAIS: pool})

	entries := []AnswerEntry{
		{QuestionID: pool[0].ID, OptionID: pool[0].Options[0].ID},
		{QuestionID: "no-such-question", OptionID: "whatever"},
	}

	result, err := bank.Grade(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Total)
}

func TestGrade_Deterministic(t *testing.T) {
	pool := makePool(TypeValues, 6, "economic")
	bank, _ := newTestBank(map[Type][]Question{TypeValues: pool})

	entries := []AnswerEntry{
		{QuestionID: pool[0].ID, OptionID: pool[0].Options[0].ID},
		{QuestionID: pool[3].ID, OptionID: pool[3].Options[0].ID},
	}

	first, err := bank.Grade(context.Background(), entries)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := bank.Grade(context.Background(), entries)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScore_SubscaleBreakdown(t *testing.T) {
	questions := map[string]Question{
		"q1": {ID: "q1", Points: 3, Scale: "moral", Options: []Option{{ID: "q1-a", Correct: true}}},
		"q2": {ID: "q2", Points: 5, Scale: "economic", Options: []Option{{ID: "q2-a", Correct: true}}},
		"q3": {ID: "q3", Points: 2, Scale: "moral", Options: []Option{{ID: "q3-a", Correct: true}}},
		"q4": {ID: "q4", Points: 7, Scale: "social", Options: []Option{{ID: "q4-a", Correct: true}}},
	}
	entries := []AnswerEntry{
		{QuestionID: "q1", OptionID: "q1-a"},
		{QuestionID: "q2", OptionID: "q2-a"},
		{QuestionID: "q3", OptionID: "q3-a"},
		{QuestionID: "q4", OptionID: "q4-wrong"},
	}

	result := Score(questions, entries)

	assert.Equal(t, 10, result.Total)
	assert.Equal(t, []Subscale{
		{Name: "economic", Score: 5},
		{Name: "moral", Score: 5},
	}, result.Subscales)
}

func TestScore_QuestionWithoutCorrectOptionScoresZero(t *testing.T) {
	questions := map[string]Question{
		"q1": {ID: "q1", Points: 3, Options: []Option{{ID: "q1-a"}, {ID: "q1-b"}}},
	}
	result := Score(questions, []AnswerEntry{{QuestionID: "q1", OptionID: "q1-a"}})
	assert.Equal(t, 0, result.Total)
}
