package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-platform/internal/domain/exam"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXAM REPOSITORIES IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// QuestionRepository implements exam.QuestionRepository.
type QuestionRepository struct {
	conn *Connection
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(conn *Connection) *QuestionRepository {
	return &QuestionRepository{conn: conn}
}

// ListActive returns all active questions of an exam type, options included.
func (r *QuestionRepository) ListActive(ctx context.Context, examType exam.Type) ([]exam.Question, error) {
	query := `
		SELECT id, exam_type, text, points, scale, active
		FROM exam_questions
		WHERE exam_type = $1 AND active
		ORDER BY created_at
	`
	rows, err := r.conn.Query(ctx, query, examType.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list active questions: %w", err)
	}
	questions, err := collectQuestions(rows)
	if err != nil {
		return nil, err
	}
	return r.attachOptions(ctx, questions)
}

// GetByIDs returns questions (with options) for the given IDs.
// Unknown IDs are omitted, not an error.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []string) ([]exam.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, exam_type, text, points, scale, active
		FROM exam_questions
		WHERE id = ANY($1)
	`
	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions by IDs: %w", err)
	}
	questions, err := collectQuestions(rows)
	if err != nil {
		return nil, err
	}
	return r.attachOptions(ctx, questions)
}

// CountActive returns the active pool size per exam type.
func (r *QuestionRepository) CountActive(ctx context.Context) (map[exam.Type]int, error) {
	rows, err := r.conn.Query(ctx, `SELECT exam_type, COUNT(*) FROM exam_questions WHERE active GROUP BY exam_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count active questions: %w", err)
	}
	defer rows.Close()

	counts := make(map[exam.Type]int)
	for rows.Next() {
		var examType string
		var count int
		if err := rows.Scan(&examType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan question count: %w", err)
		}
		counts[exam.Type(examType)] = count
	}
	return counts, rows.Err()
}

// attachOptions loads options for the given questions in one query.
func (r *QuestionRepository) attachOptions(ctx context.Context, questions []exam.Question) ([]exam.Question, error) {
	if len(questions) == 0 {
		return questions, nil
	}

	ids := make([]string, len(questions))
	index := make(map[string]int, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		index[q.ID] = i
	}

	query := `
		SELECT id, question_id, text, correct
		FROM exam_options
		WHERE question_id = ANY($1)
		ORDER BY question_id, position
	`
	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opt exam.Option
		var questionID string
		if err := rows.Scan(&opt.ID, &questionID, &opt.Text, &opt.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		if i, ok := index[questionID]; ok {
			questions[i].Options = append(questions[i].Options, opt)
		}
	}
	return questions, rows.Err()
}

func collectQuestions(rows pgx.Rows) ([]exam.Question, error) {
	defer rows.Close()

	var questions []exam.Question
	for rows.Next() {
		var q exam.Question
		var examType string
		if err := rows.Scan(&q.ID, &examType, &q.Text, &q.Points, &q.Scale, &q.Active); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.ExamType = exam.Type(examType)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Form instances
// ─────────────────────────────────────────────────────────────────────────────

// FormRepository implements exam.FormRepository.
type FormRepository struct {
	conn *Connection
}

// NewFormRepository creates a new FormRepository.
func NewFormRepository(conn *Connection) *FormRepository {
	return &FormRepository{conn: conn}
}

// Create persists a generated form instance.
func (r *FormRepository) Create(ctx context.Context, form *exam.FormInstance) error {
	questionIDs, err := json.Marshal(form.QuestionIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal question IDs: %w", err)
	}

	query := `
		INSERT INTO exam_form_instances (id, preregistration_id, exam_type, question_ids, generated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.conn.Exec(ctx, query,
		form.ID,
		form.PreregistrationID.String(),
		form.ExamType.String(),
		questionIDs,
		form.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create form instance: %w", err)
	}
	return nil
}

// GetLatest returns the most recently generated form for a
// pre-registration and exam type.
func (r *FormRepository) GetLatest(ctx context.Context, preregID shared.PreregistrationID, examType exam.Type) (*exam.FormInstance, error) {
	query := `
		SELECT id, preregistration_id, exam_type, question_ids, generated_at
		FROM exam_form_instances
		WHERE preregistration_id = $1 AND exam_type = $2
		ORDER BY generated_at DESC
		LIMIT 1
	`
	var form exam.FormInstance
	var id, prereg, et string
	var questionIDs []byte

	err := r.conn.QueryRow(ctx, query, preregID.String(), examType.String()).Scan(
		&id, &prereg, &et, &questionIDs, &form.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to get latest form: %w", err)
	}

	form.ID = id
	form.PreregistrationID = shared.PreregistrationID(prereg)
	form.ExamType = exam.Type(et)
	if err := json.Unmarshal(questionIDs, &form.QuestionIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question IDs: %w", err)
	}
	return &form, nil
}
