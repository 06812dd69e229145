package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-platform/internal/domain/assessment"
	"github.com/academy-hub/academy-platform/internal/domain/exam"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSESSMENT REPOSITORY IMPLEMENTATION
// Versioned history appends compute max(version)+1 inside the INSERT and
// lean on UNIQUE(preregistration_id, version): a concurrent writer that
// loses the race hits 23505 and the append is retried with a fresh max.
// ══════════════════════════════════════════════════════════════════════════════

// AssessmentRepository implements assessment.Repository.
type AssessmentRepository struct {
	conn *Connection
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(conn *Connection) *AssessmentRepository {
	return &AssessmentRepository{conn: conn}
}

// UpsertTotals writes the current totals row, overwriting any previous
// snapshot. Does not touch history.
func (r *AssessmentRepository) UpsertTotals(ctx context.Context, t *assessment.Totals) error {
	query := `
		INSERT INTO assessment_totals (
			preregistration_id, wais_total, academic_total, values_total,
			math_total, personality_total, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (preregistration_id) DO UPDATE SET
			wais_total = EXCLUDED.wais_total,
			academic_total = EXCLUDED.academic_total,
			values_total = EXCLUDED.values_total,
			math_total = EXCLUDED.math_total,
			personality_total = EXCLUDED.personality_total,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.conn.Exec(ctx, query,
		t.PreregistrationID.String(),
		t.WAIS,
		t.Academic,
		t.Values,
		t.Math,
		t.Personality,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert totals: %w", err)
	}
	return nil
}

// GetTotals returns the current totals snapshot.
func (r *AssessmentRepository) GetTotals(ctx context.Context, preregID shared.PreregistrationID) (*assessment.Totals, error) {
	query := `
		SELECT preregistration_id, wais_total, academic_total, values_total,
		       math_total, personality_total, updated_at
		FROM assessment_totals
		WHERE preregistration_id = $1
	`
	var t assessment.Totals
	var id string
	err := r.conn.QueryRow(ctx, query, preregID.String()).Scan(
		&id, &t.WAIS, &t.Academic, &t.Values, &t.Math, &t.Personality, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get totals: %w", err)
	}
	t.PreregistrationID = shared.PreregistrationID(id)
	return &t, nil
}

// AppendHistory inserts an immutable history entry with the next version
// for the pre-registration. Retries version conflicts a bounded number
// of times before surfacing shared.ErrVersionConflict.
func (r *AssessmentRepository) AppendHistory(ctx context.Context, entry *assessment.HistoryEntry) error {
	rawAnswers, err := marshalNullable(entry.RawAnswers)
	if err != nil {
		return fmt.Errorf("failed to marshal raw answers: %w", err)
	}
	subscales, err := marshalNullable(entry.Subscales)
	if err != nil {
		return fmt.Errorf("failed to marshal subscales: %w", err)
	}

	query := `
		INSERT INTO assessment_history (
			id, preregistration_id, version, scenario_type,
			wais_total, academic_total, values_total, math_total, personality_total,
			raw_answers, subscales, created_at
		)
		SELECT $1, $2, COALESCE(MAX(h.version), 0) + 1, $3, $4, $5, $6, $7, $8, $9, $10, $11
		FROM assessment_history h
		WHERE h.preregistration_id = $2
		RETURNING version
	`

	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 5
	cfg.RetryIf = IsUniqueViolation

	err = retry.Do(ctx, cfg, func(int) error {
		return r.conn.QueryRow(ctx, query,
			entry.ID,
			entry.PreregistrationID.String(),
			string(entry.Scenario),
			entry.Totals.WAIS,
			entry.Totals.Academic,
			entry.Totals.Values,
			entry.Totals.Math,
			entry.Totals.Personality,
			rawAnswers,
			subscales,
			entry.CreatedAt,
		).Scan(&entry.Version)
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrVersionConflict
		}
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// ListHistory returns history entries, newest version first.
func (r *AssessmentRepository) ListHistory(ctx context.Context, preregID shared.PreregistrationID, opts shared.Pagination) ([]*assessment.HistoryEntry, error) {
	query := `
		SELECT id, preregistration_id, version, scenario_type,
		       wais_total, academic_total, values_total, math_total, personality_total,
		       raw_answers, subscales, created_at
		FROM assessment_history
		WHERE preregistration_id = $1
		ORDER BY version DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.conn.Query(ctx, query, preregID.String(), opts.Limit(), opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []*assessment.HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetLatestSubscales scans history newest-first for the most recent
// entry carrying a sub-scale breakdown.
func (r *AssessmentRepository) GetLatestSubscales(ctx context.Context, preregID shared.PreregistrationID) (*assessment.SubscaleDetail, error) {
	query := `
		SELECT subscales
		FROM assessment_history
		WHERE preregistration_id = $1 AND subscales IS NOT NULL
		ORDER BY version DESC
		LIMIT 1
	`
	var raw []byte
	err := r.conn.QueryRow(ctx, query, preregID.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest subscales: %w", err)
	}

	var detail assessment.SubscaleDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscales: %w", err)
	}
	return &detail, nil
}

func scanHistoryEntry(row pgx.Row) (*assessment.HistoryEntry, error) {
	var entry assessment.HistoryEntry
	var id, preregID, scenario string
	var rawAnswers, subscales []byte

	err := row.Scan(
		&id,
		&preregID,
		&entry.Version,
		&scenario,
		&entry.Totals.WAIS,
		&entry.Totals.Academic,
		&entry.Totals.Values,
		&entry.Totals.Math,
		&entry.Totals.Personality,
		&rawAnswers,
		&subscales,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}

	entry.ID = id
	entry.PreregistrationID = shared.PreregistrationID(preregID)
	entry.Scenario = assessment.ScenarioType(scenario)
	entry.Totals.PreregistrationID = entry.PreregistrationID

	if len(rawAnswers) > 0 {
		var answers []exam.AnswerEntry
		if err := json.Unmarshal(rawAnswers, &answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal raw answers: %w", err)
		}
		entry.RawAnswers = answers
	}
	if len(subscales) > 0 {
		var detail assessment.SubscaleDetail
		if err := json.Unmarshal(subscales, &detail); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subscales: %w", err)
		}
		entry.Subscales = &detail
	}
	return &entry, nil
}

// marshalNullable marshals v to JSON, mapping nil values to SQL NULL.
func marshalNullable(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case []exam.AnswerEntry:
		if val == nil {
			return nil, nil
		}
	case *assessment.SubscaleDetail:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
