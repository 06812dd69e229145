package postgres

import (
	"context"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: ADVISOR ONBOARDING PIPELINE
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Advisor pre-registrations. Never deleted; soft-retained for audit.
CREATE TABLE IF NOT EXISTS preregistrations (
    id UUID PRIMARY KEY,
    given_name VARCHAR(100) NOT NULL,
    family_name VARCHAR(100) NOT NULL,
    contact VARCHAR(255) NOT NULL UNIQUE,
    specialty_area VARCHAR(120) NOT NULL DEFAULT '',
    education VARCHAR(255) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_prereg_status CHECK (status IN ('pending', 'testing', 'completed', 'rejected'))
);

CREATE INDEX IF NOT EXISTS idx_preregistrations_status ON preregistrations(status);
CREATE INDEX IF NOT EXISTS idx_preregistrations_created_at ON preregistrations(created_at DESC);

-- Current totals snapshot: one row per preregistration, upserted on
-- every scoring event. History, not this table, is the audit trail.
CREATE TABLE IF NOT EXISTS assessment_totals (
    preregistration_id UUID PRIMARY KEY REFERENCES preregistrations(id),
    wais_total INTEGER NOT NULL DEFAULT 0,
    academic_total INTEGER NOT NULL DEFAULT 0,
    values_total INTEGER NOT NULL DEFAULT 0,
    math_total INTEGER,
    personality_total INTEGER,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Append-only scoring history. The composite unique constraint is what
-- makes concurrent version assignment safe: the insert computes
-- max(version)+1 and a losing writer hits 23505 and retries.
CREATE TABLE IF NOT EXISTS assessment_history (
    id UUID PRIMARY KEY,
    preregistration_id UUID NOT NULL REFERENCES preregistrations(id),
    version INTEGER NOT NULL,
    scenario_type VARCHAR(50) NOT NULL,
    wais_total INTEGER NOT NULL DEFAULT 0,
    academic_total INTEGER NOT NULL DEFAULT 0,
    values_total INTEGER NOT NULL DEFAULT 0,
    math_total INTEGER,
    personality_total INTEGER,
    raw_answers JSONB,
    subscales JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_history_version UNIQUE (preregistration_id, version),
    CONSTRAINT positive_version CHECK (version >= 1)
);

CREATE INDEX IF NOT EXISTS idx_history_prereg_version ON assessment_history(preregistration_id, version DESC);

-- Question bank. Questions are immutable once referenced by a form;
-- forms snapshot question IDs, not content.
CREATE TABLE IF NOT EXISTS exam_questions (
    id UUID PRIMARY KEY,
    exam_type VARCHAR(20) NOT NULL,
    text TEXT NOT NULL,
    points INTEGER NOT NULL DEFAULT 1,
    scale VARCHAR(50) NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_exam_type CHECK (exam_type IN ('wais', 'academic', 'values', 'math', 'personality')),
    CONSTRAINT positive_points CHECK (points > 0)
);

CREATE INDEX IF NOT EXISTS idx_questions_type_active ON exam_questions(exam_type) WHERE active;

CREATE TABLE IF NOT EXISTS exam_options (
    id UUID PRIMARY KEY,
    question_id UUID NOT NULL REFERENCES exam_questions(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    correct BOOLEAN NOT NULL DEFAULT FALSE,
    position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_options_question ON exam_options(question_id);

-- Generated form instances: which question IDs were served to whom.
CREATE TABLE IF NOT EXISTS exam_form_instances (
    id UUID PRIMARY KEY,
    preregistration_id UUID NOT NULL REFERENCES preregistrations(id),
    exam_type VARCHAR(20) NOT NULL,
    question_ids JSONB NOT NULL,
    generated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_form_exam_type CHECK (exam_type IN ('wais', 'academic', 'values', 'math', 'personality'))
);

CREATE INDEX IF NOT EXISTS idx_forms_prereg_type ON exam_form_instances(preregistration_id, exam_type, generated_at DESC);

-- Issued credentials. The unique handle constraint is the collision
-- guard for handle generation; one credential per advisor ever.
CREATE TABLE IF NOT EXISTS credentials (
    id UUID PRIMARY KEY,
    preregistration_id UUID NOT NULL UNIQUE REFERENCES preregistrations(id),
    handle VARCHAR(80) NOT NULL,
    secret_hash BYTEA NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'advisor',
    issued_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_credentials_handle UNIQUE (handle)
);

-- Advisor profiles, 1:1 with preregistrations once created.
-- group_label always mirrors groups->0.
CREATE TABLE IF NOT EXISTS advisor_profiles (
    id UUID PRIMARY KEY,
    preregistration_id UUID NOT NULL UNIQUE REFERENCES preregistrations(id),
    group_label VARCHAR(10) NOT NULL DEFAULT '',
    groups JSONB NOT NULL DEFAULT '[]'::jsonb,
    phone VARCHAR(30) NOT NULL DEFAULT '',
    address VARCHAR(255) NOT NULL DEFAULT '',
    degree_title VARCHAR(120) NOT NULL DEFAULT '',
    document_paths JSONB NOT NULL DEFAULT '{}'::jsonb,
    credential_id UUID REFERENCES credentials(id),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Student roster as the pipeline sees it. group_normalized is written on
-- every group write so bulk matching never depends on collation.
CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY,
    full_name VARCHAR(200) NOT NULL,
    group_label VARCHAR(50) NOT NULL DEFAULT '',
    group_normalized VARCHAR(50) NOT NULL DEFAULT '',
    advisor_name VARCHAR(200),
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_students_group_normalized ON students(group_normalized);
`

// migrations in apply order.
var migrations = []struct {
	version int
	name    string
	up      string
}{
	{1, "advisor_onboarding_pipeline", migration001Up},
}

// Migrate applies all pending migrations. Tracked in schema_migrations;
// idempotent across restarts.
func Migrate(ctx context.Context, conn *Connection) error {
	const track = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`
	if _, err := conn.Exec(ctx, track); err != nil {
		return fmt.Errorf("postgres: creating migration table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("postgres: checking migration %d: %w", m.version, err)
		}
		if exists {
			continue
		}

		if _, err := conn.Exec(ctx, m.up); err != nil {
			return fmt.Errorf("postgres: applying migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := conn.Exec(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.version, m.name); err != nil {
			return fmt.Errorf("postgres: recording migration %d: %w", m.version, err)
		}
	}
	return nil
}
