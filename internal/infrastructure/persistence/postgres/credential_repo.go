package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-platform/internal/domain/credential"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREDENTIAL REPOSITORY IMPLEMENTATION
// Issue writes the credential, the profile link, and the status change
// in one transaction, so a failure at any step leaves no half-issued
// credential. Handle collisions surface as 23505 on uq_credentials_handle
// and are mapped to shared.ErrHandleTaken for the caller's suffix retry.
// ══════════════════════════════════════════════════════════════════════════════

// CredentialRepository implements credential.Repository.
type CredentialRepository struct {
	conn *Connection
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(conn *Connection) *CredentialRepository {
	return &CredentialRepository{conn: conn}
}

// Issue atomically persists the credential, links it to the advisor's
// profile when one exists, and moves the pre-registration to completed.
func (r *CredentialRepository) Issue(ctx context.Context, cred *credential.Credential) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO credentials (id, preregistration_id, handle, secret_hash, role, issued_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			cred.ID,
			cred.PreregistrationID.String(),
			cred.Handle,
			cred.SecretHash,
			cred.Role,
			cred.IssuedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				if ConstraintName(err) == "uq_credentials_handle" {
					return shared.ErrHandleTaken
				}
				return shared.ErrAlreadyIssued
			}
			return fmt.Errorf("failed to insert credential: %w", err)
		}

		// Link to the profile if one already exists; profile creation
		// may legitimately happen after issuance.
		_, err = tx.Exec(ctx, `
			UPDATE advisor_profiles
			SET credential_id = $2, updated_at = $3
			WHERE preregistration_id = $1
		`, cred.PreregistrationID.String(), cred.ID, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to link credential to profile: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE preregistrations SET status = 'completed', updated_at = $2 WHERE id = $1
		`, cred.PreregistrationID.String(), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to complete preregistration: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrPreregistrationNotFound
		}
		return nil
	})
}

// GetByPreregistration returns the issued credential for an advisor.
func (r *CredentialRepository) GetByPreregistration(ctx context.Context, preregID shared.PreregistrationID) (*credential.Credential, error) {
	query := `
		SELECT id, preregistration_id, handle, secret_hash, role, issued_at
		FROM credentials
		WHERE preregistration_id = $1
	`
	return r.scan(r.conn.QueryRow(ctx, query, preregID.String()))
}

// GetByHandle returns a credential by its unique handle.
func (r *CredentialRepository) GetByHandle(ctx context.Context, handle string) (*credential.Credential, error) {
	query := `
		SELECT id, preregistration_id, handle, secret_hash, role, issued_at
		FROM credentials
		WHERE handle = $1
	`
	return r.scan(r.conn.QueryRow(ctx, query, handle))
}

func (r *CredentialRepository) scan(row pgx.Row) (*credential.Credential, error) {
	var cred credential.Credential
	var preregID string

	err := row.Scan(&cred.ID, &preregID, &cred.Handle, &cred.SecretHash, &cred.Role, &cred.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to scan credential: %w", err)
	}

	cred.PreregistrationID = shared.PreregistrationID(preregID)
	return &cred, nil
}
