// Package saga contains complex business processes that orchestrate
// multiple domain operations in a coordinated manner.
package saga

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-platform/internal/domain/assessment"
	"github.com/academy-hub/academy-platform/internal/domain/credential"
	"github.com/academy-hub/academy-platform/internal/domain/preregistration"
	"github.com/academy-hub/academy-platform/internal/domain/shared"
	"github.com/academy-hub/academy-platform/pkg/logger"
	"github.com/academy-hub/academy-platform/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// FINALIZATION SAGA
// Flow: Load → Permit Retake → Idempotency Check → Evaluate Totals →
//
//	Issue Credentials → Record History
//
// A not-approved outcome is a normal business result, never an error:
// the caller receives the evaluated totals and the checks that failed so
// the gap can be explained to the applicant.
// ══════════════════════════════════════════════════════════════════════════════

// FinalizationConfig contains configuration for the finalization saga.
type FinalizationConfig struct {
	// OrgSuffix is the fixed organizational suffix appended to every
	// generated login handle.
	OrgSuffix string

	// SecretLength is the generated secret length (floored at the
	// domain minimum).
	SecretLength int

	// HashCost is the bcrypt cost factor (floored at the domain minimum).
	HashCost int

	// HandleMaxAttempts bounds the suffix retry loop on handle collisions.
	HandleMaxAttempts int
}

// DefaultFinalizationConfig returns default configuration.
func DefaultFinalizationConfig() FinalizationConfig {
	return FinalizationConfig{
		OrgSuffix:         "academy",
		SecretLength:      12,
		HashCost:          12,
		HandleMaxAttempts: 25,
	}
}

// FinalizationResult is the structured outcome of a finalize call.
type FinalizationResult struct {
	// Approved reports the evaluation outcome.
	Approved bool

	// AlreadyCompleted is true when the pre-registration was finalized
	// by an earlier call; credentials are not reissued.
	AlreadyCompleted bool

	// Decision carries the evaluated rule outcome, including failed checks.
	Decision assessment.Decision

	// Totals is the snapshot that was evaluated (nil when none existed).
	Totals *assessment.Totals

	// Credentials is the plaintext handle/secret pair, present exactly
	// once: on the call that actually issued them.
	Credentials *credential.IssuedPair

	// FinalizedAt is when this outcome was produced.
	FinalizedAt time.Time
}

// FinalizationSaga orchestrates approval evaluation and credential
// issuance. Stateless: all state lives in the store between calls.
type FinalizationSaga struct {
	preregs     preregistration.Repository
	assessments assessment.Repository
	credentials credential.Repository
	config      FinalizationConfig
	log         *logger.Logger
}

// NewFinalizationSaga creates the saga with all dependencies.
func NewFinalizationSaga(
	preregs preregistration.Repository,
	assessments assessment.Repository,
	credentials credential.Repository,
	config FinalizationConfig,
	log *logger.Logger,
) *FinalizationSaga {
	if config.OrgSuffix == "" {
		config.OrgSuffix = DefaultFinalizationConfig().OrgSuffix
	}
	if config.HandleMaxAttempts <= 0 {
		config.HandleMaxAttempts = DefaultFinalizationConfig().HandleMaxAttempts
	}
	return &FinalizationSaga{
		preregs:     preregs,
		assessments: assessments,
		credentials: credentials,
		config:      config,
		log:         log,
	}
}

// Execute runs the finalization flow for one pre-registration.
// Returns shared.ErrPreregistrationNotFound for unknown IDs. Repeat calls
// on a completed record are idempotent no-ops returning the prior outcome.
func (s *FinalizationSaga) Execute(ctx context.Context, preregID string) (*FinalizationResult, error) {
	id, err := shared.NewPreregistrationID(preregID)
	if err != nil {
		return nil, err
	}

	prereg, err := s.preregs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// Already finalized: report the prior outcome, never reissue.
	if prereg.IsCompleted() {
		totals, err := s.totalsOrNil(ctx, id)
		if err != nil {
			return nil, err
		}
		return &FinalizationResult{
			Approved:         true,
			AlreadyCompleted: true,
			Decision:         assessment.Decision{Approved: true},
			Totals:           totals,
			FinalizedAt:      now,
		}, nil
	}

	// Rejection is not terminal: silently re-enter testing so the
	// applicant can be re-evaluated after a retake.
	if prereg.Status == preregistration.StatusRejected {
		if err := prereg.TransitionTo(preregistration.StatusTesting, now); err != nil {
			return nil, err
		}
		if err := s.preregs.UpdateStatus(ctx, id, prereg.Status); err != nil {
			return nil, err
		}
	}

	totals, err := s.totalsOrNil(ctx, id)
	if err != nil {
		return nil, err
	}
	decision := assessment.Evaluate(totals)
	if decision.Unscored {
		s.log.Warn("finalize evaluated with no recorded totals",
			logger.F("preregistration_id", id.String()),
			logger.F("approved", decision.Approved),
		)
	}

	if !decision.Approved {
		return s.recordNotApproved(ctx, prereg, totals, decision, now)
	}

	pair, err := s.issueCredentials(ctx, prereg, now)
	if err != nil {
		return nil, err
	}

	entry := &assessment.HistoryEntry{
		ID:                uuid.NewString(),
		PreregistrationID: id,
		Scenario:          assessment.ScenarioFinalizationApproved,
		Totals:            totalsValue(id, totals),
		CreatedAt:         now,
	}
	if err := s.assessments.AppendHistory(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info("finalization approved, credentials issued",
		logger.F("preregistration_id", id.String()),
		logger.F("version", entry.Version),
	)
	return &FinalizationResult{
		Approved:    true,
		Decision:    decision,
		Totals:      totals,
		Credentials: pair,
		FinalizedAt: now,
	}, nil
}

// recordNotApproved appends the failed-attempt history entry and makes
// sure the record sits in testing (a failed attempt must never regress
// or look like a system error).
func (s *FinalizationSaga) recordNotApproved(
	ctx context.Context,
	prereg *preregistration.PreRegistration,
	totals *assessment.Totals,
	decision assessment.Decision,
	now time.Time,
) (*FinalizationResult, error) {
	id := prereg.ID

	entry := &assessment.HistoryEntry{
		ID:                uuid.NewString(),
		PreregistrationID: id,
		Scenario:          assessment.ScenarioFinalizationFailed,
		Totals:            totalsValue(id, totals),
		CreatedAt:         now,
	}
	if err := s.assessments.AppendHistory(ctx, entry); err != nil {
		return nil, err
	}

	if err := prereg.EnsureTesting(now); err != nil {
		return nil, err
	}
	if err := s.preregs.UpdateStatus(ctx, id, prereg.Status); err != nil {
		return nil, err
	}

	s.log.Info("finalization not approved",
		logger.F("preregistration_id", id.String()),
		logger.F("failed_checks", decision.FailedChecks),
		logger.F("version", entry.Version),
	)
	return &FinalizationResult{
		Approved:    false,
		Decision:    decision,
		Totals:      totals,
		FinalizedAt: now,
	}, nil
}

// issueCredentials generates the handle and secret and persists the
// credential atomically. Handle collisions surface as unique-constraint
// conflicts from the store and are resolved by retrying with the next
// "-<n>" suffix, bounded by HandleMaxAttempts.
func (s *FinalizationSaga) issueCredentials(
	ctx context.Context,
	prereg *preregistration.PreRegistration,
	now time.Time,
) (*credential.IssuedPair, error) {
	// A record approved straight from pending (unscored default) still
	// walks the table: pending → testing → completed.
	if err := prereg.EnsureTesting(now); err != nil {
		return nil, err
	}

	secret, err := credential.GenerateSecret(s.config.SecretLength)
	if err != nil {
		return nil, err
	}
	hash, err := credential.HashSecret(secret, s.config.HashCost)
	if err != nil {
		return nil, err
	}

	base := credential.BaseHandle(prereg.Identity.GivenName, s.config.OrgSuffix)

	var issued *credential.Credential
	retryCfg := retry.Config{
		MaxAttempts:  s.config.HandleMaxAttempts,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     250 * time.Millisecond,
		Multiplier:   1.5,
		JitterFactor: 0.2,
		RetryIf: func(err error) bool {
			return errors.Is(err, shared.ErrHandleTaken)
		},
		OnRetry: func(attempt int, err error, _ time.Duration) {
			s.log.Debug("handle taken, trying next suffix",
				logger.F("base", base),
				logger.F("attempt", attempt),
			)
		},
	}

	err = retry.Do(ctx, retryCfg, func(attempt int) error {
		cred := &credential.Credential{
			ID:                uuid.NewString(),
			PreregistrationID: prereg.ID,
			Handle:            credential.HandleCandidate(base, attempt),
			SecretHash:        hash,
			Role:              credential.RoleAdvisor,
			IssuedAt:          now,
		}
		if err := s.credentials.Issue(ctx, cred); err != nil {
			if errors.Is(err, shared.ErrAlreadyIssued) {
				return retry.Permanent(err)
			}
			return err
		}
		issued = cred
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Issue moved the store row to completed; mirror it in memory.
	if err := prereg.TransitionTo(preregistration.StatusCompleted, now); err != nil {
		return nil, err
	}

	return &credential.IssuedPair{Handle: issued.Handle, Secret: secret}, nil
}

// totalsOrNil loads the current totals, mapping "never scored" to nil.
// Any other store failure propagates: an outage must never be mistaken
// for an unscored record, because the unscored default approves.
func (s *FinalizationSaga) totalsOrNil(ctx context.Context, id shared.PreregistrationID) (*assessment.Totals, error) {
	totals, err := s.assessments.GetTotals(ctx, id)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, err
		}
		return nil, nil
	}
	return totals, nil
}

// totalsValue returns the totals to embed in a history entry: the
// evaluated snapshot when one exists, a zero snapshot otherwise.
func totalsValue(id shared.PreregistrationID, totals *assessment.Totals) assessment.Totals {
	if totals != nil {
		return *totals
	}
	return assessment.Totals{PreregistrationID: id}
}
