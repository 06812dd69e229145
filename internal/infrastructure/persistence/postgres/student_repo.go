package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT ROSTER REPOSITORY IMPLEMENTATION
// Bulk reassignment is one UPDATE statement: readers never observe a
// partially reassigned group. Matching uses the precomputed
// group_normalized column so collation never affects the comparison.
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// BulkAssignAdvisor assigns advisorName to every unassigned student of
// the normalized group. Returns the number of students updated.
func (r *StudentRepository) BulkAssignAdvisor(ctx context.Context, groupNormalized, advisorName string) (int64, error) {
	query := `
		UPDATE students
		SET advisor_name = $2, updated_at = $3
		WHERE group_normalized = $1
		  AND (advisor_name IS NULL OR btrim(advisor_name) = '' OR upper(btrim(advisor_name)) = $4)
	`
	tag, err := r.conn.Exec(ctx, query,
		groupNormalized,
		advisorName,
		time.Now().UTC(),
		student.UnassignedPlaceholder,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk assign advisor: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListByGroup returns students in a normalized group.
func (r *StudentRepository) ListByGroup(ctx context.Context, groupNormalized string) ([]*student.Student, error) {
	query := `
		SELECT id, full_name, group_label, group_normalized, COALESCE(advisor_name, ''), created_at, updated_at
		FROM students
		WHERE group_normalized = $1
		ORDER BY full_name
	`
	rows, err := r.conn.Query(ctx, query, groupNormalized)
	if err != nil {
		return nil, fmt.Errorf("failed to list students by group: %w", err)
	}
	defer rows.Close()

	var students []*student.Student
	for rows.Next() {
		var s student.Student
		if err := rows.Scan(&s.ID, &s.FullName, &s.GroupLabel, &s.GroupNormalized, &s.AdvisorName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, &s)
	}
	return students, rows.Err()
}

// CountByGroup aggregates roster sizes and assignment counts per group.
func (r *StudentRepository) CountByGroup(ctx context.Context) ([]student.GroupCount, error) {
	query := `
		SELECT group_label,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE advisor_name IS NOT NULL AND btrim(advisor_name) <> '' AND upper(btrim(advisor_name)) <> $1)
		FROM students
		GROUP BY group_label
		ORDER BY group_label
	`
	rows, err := r.conn.Query(ctx, query, student.UnassignedPlaceholder)
	if err != nil {
		return nil, fmt.Errorf("failed to count students by group: %w", err)
	}
	defer rows.Close()

	var counts []student.GroupCount
	for rows.Next() {
		var c student.GroupCount
		if err := rows.Scan(&c.Group, &c.Students, &c.Assigned); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// InsertRoster adds a roster row, computing the normalized group column.
// Used by the roster import path and tests.
func (r *StudentRepository) InsertRoster(ctx context.Context, s *student.Student) error {
	s.GroupNormalized = shared.Fold(s.GroupLabel)
	query := `
		INSERT INTO students (id, full_name, group_label, group_normalized, advisor_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
	`
	_, err := r.conn.Exec(ctx, query,
		s.ID, s.FullName, s.GroupLabel, s.GroupNormalized, s.AdvisorName, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}
