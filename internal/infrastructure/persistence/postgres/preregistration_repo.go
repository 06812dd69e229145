package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PREREGISTRATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PreregistrationRepository implements preregistration.Repository.
type PreregistrationRepository struct {
	conn *Connection
}

// NewPreregistrationRepository creates a new PreregistrationRepository.
func NewPreregistrationRepository(conn *Connection) *PreregistrationRepository {
	return &PreregistrationRepository{conn: conn}
}

const preregColumns = `id, given_name, family_name, contact, specialty_area, education, status, created_at, updated_at`

// Create creates a new pre-registration.
func (r *PreregistrationRepository) Create(ctx context.Context, p *preregistration.PreRegistration) error {
	query := `
		INSERT INTO preregistrations (` + preregColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.conn.Exec(ctx, query,
		p.ID.String(),
		p.Identity.GivenName,
		p.Identity.FamilyName,
		p.Identity.Contact.String(),
		p.Identity.SpecialtyArea,
		p.Identity.Education,
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateContact
		}
		return fmt.Errorf("failed to create preregistration: %w", err)
	}
	return nil
}

// GetByID returns a pre-registration by ID.
func (r *PreregistrationRepository) GetByID(ctx context.Context, id shared.PreregistrationID) (*preregistration.PreRegistration, error) {
	query := `SELECT ` + preregColumns + ` FROM preregistrations WHERE id = $1`
	return r.scan(r.conn.QueryRow(ctx, query, id.String()))
}

// GetByContact returns a pre-registration by its contact identifier.
func (r *PreregistrationRepository) GetByContact(ctx context.Context, contact shared.Contact) (*preregistration.PreRegistration, error) {
	query := `SELECT ` + preregColumns + ` FROM preregistrations WHERE contact = $1`
	return r.scan(r.conn.QueryRow(ctx, query, contact.String()))
}

// UpdateStatus persists a status value after validating enum membership.
func (r *PreregistrationRepository) UpdateStatus(ctx context.Context, id shared.PreregistrationID, status preregistration.Status) error {
	if !status.IsValid() {
		return shared.ErrInvalidStatus
	}

	tag, err := r.conn.Exec(ctx,
		`UPDATE preregistrations SET status = $2, updated_at = $3 WHERE id = $1`,
		id.String(), string(status), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update preregistration status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrPreregistrationNotFound
	}
	return nil
}

// UpdateIdentity persists corrected identity fields (admin path).
func (r *PreregistrationRepository) UpdateIdentity(ctx context.Context, id shared.PreregistrationID, identity preregistration.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	tag, err := r.conn.Exec(ctx, `
		UPDATE preregistrations
		SET given_name = $2, family_name = $3, contact = $4,
		    specialty_area = $5, education = $6, updated_at = $7
		WHERE id = $1
	`,
		id.String(),
		identity.GivenName,
		identity.FamilyName,
		identity.Contact.String(),
		identity.SpecialtyArea,
		identity.Education,
		time.Now().UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateContact
		}
		return fmt.Errorf("failed to update preregistration identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrPreregistrationNotFound
	}
	return nil
}

// List returns pre-registrations, newest first.
func (r *PreregistrationRepository) List(ctx context.Context, opts shared.Pagination) ([]*preregistration.PreRegistration, error) {
	query := `
		SELECT ` + preregColumns + `
		FROM preregistrations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.conn.Query(ctx, query, opts.Limit(), opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list preregistrations: %w", err)
	}
	defer rows.Close()

	var result []*preregistration.PreRegistration
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// CountByStatus returns the number of pre-registrations per status.
func (r *PreregistrationRepository) CountByStatus(ctx context.Context) (map[preregistration.Status]int, error) {
	rows, err := r.conn.Query(ctx, `SELECT status, COUNT(*) FROM preregistrations GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count preregistrations: %w", err)
	}
	defer rows.Close()

	counts := make(map[preregistration.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[preregistration.Status(status)] = count
	}
	return counts, rows.Err()
}

func (r *PreregistrationRepository) scan(row pgx.Row) (*preregistration.PreRegistration, error) {
	var p preregistration.PreRegistration
	var id, contact, status string

	err := row.Scan(
		&id,
		&p.Identity.GivenName,
		&p.Identity.FamilyName,
		&contact,
		&p.Identity.SpecialtyArea,
		&p.Identity.Education,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrPreregistrationNotFound
		}
		return nil, fmt.Errorf("failed to scan preregistration: %w", err)
	}

	p.ID = shared.PreregistrationID(id)
	p.Identity.Contact = shared.Contact(contact)
	p.Status = preregistration.Status(status)
	return &p, nil
}
