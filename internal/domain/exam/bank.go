package exam

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXAM BANK SERVICE
// Builds randomized exam form instances and grades submitted answers.
// The bank itself is read-only from the pipeline's perspective.
// ══════════════════════════════════════════════════════════════════════════════

// Bank draws randomized forms from the question pools and grades answers.
type Bank struct {
	questions QuestionSource
	forms     FormRepository
	rng       *rand.Rand
}

// QuestionSource provides active questions. Satisfied by the postgres
// repository directly or by a cache wrapping it.
type QuestionSource interface {
	ListActive(ctx context.Context, examType Type) ([]Question, error)
	GetByIDs(ctx context.Context, ids []string) ([]Question, error)
}

// NewBank creates a Bank with a time-seeded RNG.
func NewBank(questions QuestionSource, forms FormRepository) *Bank {
	return NewBankWithRand(questions, forms, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewBankWithRand creates a Bank with an explicit RNG (tests).
func NewBankWithRand(questions QuestionSource, forms FormRepository, rng *rand.Rand) *Bank {
	return &Bank{questions: questions, forms: forms, rng: rng}
}

// GenerateForm draws a fixed-size random sample without replacement from
// the active questions of examType, persists a FormInstance recording the
// drawn question IDs, and returns the served payload. The served payload
// never exposes which option is correct.
// Returns shared.ErrNoActiveQuestions if the pool is empty.
func (b *Bank) GenerateForm(ctx context.Context, preregID shared.PreregistrationID, examType Type) (*ServedForm, error) {
	if !examType.IsValid() {
		return nil, shared.ErrUnknownExamType
	}

	pool, err := b.questions.ListActive(ctx, examType)
	if err != nil {
		return nil, shared.WrapError("exam", "GenerateForm", shared.ErrInvalidState, "loading question pool", err)
	}
	if len(pool) == 0 {
		return nil, shared.ErrNoActiveQuestions
	}

	sampled := b.sample(pool, examType.FormSize())

	form := &FormInstance{
		ID:                uuid.NewString(),
		PreregistrationID: preregID,
		ExamType:          examType,
		QuestionIDs:       questionIDs(sampled),
		GeneratedAt:       time.Now().UTC(),
	}
	if err := b.forms.Create(ctx, form); err != nil {
		return nil, shared.WrapError("exam", "GenerateForm", shared.ErrInvalidState, "persisting form instance", err)
	}

	served := &ServedForm{
		FormID:            form.ID,
		PreregistrationID: preregID.String(),
		ExamType:          examType,
		Questions:         make([]ServedQuestion, 0, len(sampled)),
	}
	for _, q := range sampled {
		sq := ServedQuestion{ID: q.ID, Text: q.Text, Options: make([]ServedOption, 0, len(q.Options))}
		for _, o := range q.Options {
			sq.Options = append(sq.Options, ServedOption{ID: o.ID, Text: o.Text})
		}
		served.Questions = append(served.Questions, sq)
	}
	return served, nil
}

// sample draws up to n questions without replacement.
func (b *Bank) sample(pool []Question, n int) []Question {
	if n > len(pool) {
		n = len(pool)
	}
	picked := make([]Question, len(pool))
	copy(picked, pool)
	b.rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	return picked[:n]
}

// Grade scores submitted entries against the bank. Each correctly
// answered question contributes its point value; entries referencing
// unknown question or option IDs contribute zero silently, since forms
// are generated server-side and stray IDs indicate nothing actionable.
// An empty entry list yields score 0, not an error. Grading is
// deterministic: the same entries always produce the same result.
func (b *Bank) Grade(ctx context.Context, entries []AnswerEntry) (GradeResult, error) {
	if len(entries) == 0 {
		return GradeResult{}, nil
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.QuestionID)
	}
	questions, err := b.questions.GetByIDs(ctx, ids)
	if err != nil {
		return GradeResult{}, shared.WrapError("exam", "Grade", shared.ErrInvalidState, "loading questions", err)
	}

	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	return Score(byID, entries), nil
}

// Score is the pure grading function: the sum of point values of entries
// whose chosen option is flagged correct, with sub-scale totals for
// questions that carry a scale name.
func Score(questions map[string]Question, entries []AnswerEntry) GradeResult {
	total := 0
	scales := map[string]int{}
	for _, e := range entries {
		q, ok := questions[e.QuestionID]
		if !ok {
			continue
		}
		if q.CorrectOptionID() == "" || q.CorrectOptionID() != e.OptionID {
			continue
		}
		total += q.Points
		if q.Scale != "" {
			scales[q.Scale] += q.Points
		}
	}

	result := GradeResult{Total: total}
	if len(scales) > 0 {
		names := make([]string, 0, len(scales))
		for name := range scales {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			result.Subscales = append(result.Subscales, Subscale{Name: name, Score: scales[name]})
		}
	}
	return result
}

func questionIDs(qs []Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}
