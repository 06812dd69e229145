package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-platform/internal/domain/advisor"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADVISOR PROFILE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AdvisorRepository implements advisor.Repository.
type AdvisorRepository struct {
	conn *Connection
}

// NewAdvisorRepository creates a new AdvisorRepository.
func NewAdvisorRepository(conn *Connection) *AdvisorRepository {
	return &AdvisorRepository{conn: conn}
}

const profileColumns = `id, preregistration_id, group_label, groups, phone, address, degree_title, document_paths, credential_id, created_at, updated_at`

// Create persists a new profile.
func (r *AdvisorRepository) Create(ctx context.Context, p *advisor.Profile) error {
	groups, documents, err := marshalProfileFields(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO advisor_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.conn.Exec(ctx, query,
		p.ID,
		p.PreregistrationID.String(),
		p.Group.String(),
		groups,
		p.Phone,
		p.Address,
		p.DegreeTitle,
		documents,
		p.CredentialID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("advisor", "Create", shared.ErrAlreadyExists, "profile already exists", err)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByPreregistration returns the profile for a pre-registration.
func (r *AdvisorRepository) GetByPreregistration(ctx context.Context, preregID shared.PreregistrationID) (*advisor.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM advisor_profiles WHERE preregistration_id = $1`
	return r.scan(r.conn.QueryRow(ctx, query, preregID.String()))
}

// Update persists profile changes.
func (r *AdvisorRepository) Update(ctx context.Context, p *advisor.Profile) error {
	groups, documents, err := marshalProfileFields(p)
	if err != nil {
		return err
	}

	tag, err := r.conn.Exec(ctx, `
		UPDATE advisor_profiles
		SET group_label = $2, groups = $3, phone = $4, address = $5,
		    degree_title = $6, document_paths = $7, credential_id = $8, updated_at = $9
		WHERE id = $1
	`,
		p.ID,
		p.Group.String(),
		groups,
		p.Phone,
		p.Address,
		p.DegreeTitle,
		documents,
		p.CredentialID,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrProfileNotFound
	}
	return nil
}

func (r *AdvisorRepository) scan(row pgx.Row) (*advisor.Profile, error) {
	var p advisor.Profile
	var preregID, groupLabel string
	var groups, documents []byte

	err := row.Scan(
		&p.ID,
		&preregID,
		&groupLabel,
		&groups,
		&p.Phone,
		&p.Address,
		&p.DegreeTitle,
		&documents,
		&p.CredentialID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.PreregistrationID = shared.PreregistrationID(preregID)
	p.Group = shared.GroupLabel(groupLabel)

	var labels []string
	if err := json.Unmarshal(groups, &labels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal groups: %w", err)
	}
	for _, l := range labels {
		p.Groups = append(p.Groups, shared.GroupLabel(l))
	}

	if err := json.Unmarshal(documents, &p.DocumentPaths); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document paths: %w", err)
	}
	return &p, nil
}

func marshalProfileFields(p *advisor.Profile) ([]byte, []byte, error) {
	labels := make([]string, len(p.Groups))
	for i, g := range p.Groups {
		labels[i] = g.String()
	}
	groups, err := json.Marshal(labels)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal groups: %w", err)
	}

	docs := p.DocumentPaths
	if docs == nil {
		docs = map[string]string{}
	}
	documents, err := json.Marshal(docs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal document paths: %w", err)
	}
	return groups, documents, nil
}
