// Package preregistration contains the domain model for advisor
// pre-registrations: the application record created when a prospective
// advisor first submits their details, and the lifecycle state machine
// the onboarding pipeline drives it through.
package preregistration

import (
	"strings"
	"time"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS STATE MACHINE
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle status of a pre-registration.
type Status string

const (
	// StatusPending - submitted, no scoring event yet.
	StatusPending Status = "pending"
	// StatusTesting - at least one scoring event recorded, not yet finalized.
	StatusTesting Status = "testing"
	// StatusCompleted - finalization approved and credentials issued.
	StatusCompleted Status = "completed"
	// StatusRejected - finalization evaluated and not approved.
	StatusRejected Status = "rejected"
)

// IsValid checks that the status is one of the four known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusTesting, StatusCompleted, StatusRejected:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// transitions is the legal transition table. Rejection is not terminal:
// rejected advisors may re-enter testing to retake exams.
var transitions = map[Status][]Status{
	StatusPending:   {StatusTesting},
	StatusTesting:   {StatusCompleted, StatusRejected},
	StatusRejected:  {StatusTesting},
	StatusCompleted: {},
}

// CanTransitionTo reports whether moving to next is legal.
// A status can always "move" to itself (no-op).
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseStatus parses a persisted status string.
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", shared.ErrInvalidStatus
	}
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PREREGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Identity holds the core identity fields captured at initial submission.
// After creation these change only through the admin correction path; the
// pipeline itself mutates nothing but Status.
type Identity struct {
	GivenName     string
	FamilyName    string
	Contact       shared.Contact
	SpecialtyArea string
	Education     string
}

// Validate checks the identity fields required for creation.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.GivenName) == "" {
		return shared.NewDomainError("preregistration", "Validate", shared.ErrEmptyValue, "given name is required")
	}
	if strings.TrimSpace(i.FamilyName) == "" {
		return shared.NewDomainError("preregistration", "Validate", shared.ErrEmptyValue, "family name is required")
	}
	if !i.Contact.IsValid() {
		return shared.NewDomainError("preregistration", "Validate", shared.ErrInvalidFormat, "invalid contact identifier")
	}
	return nil
}

// DisplayName is the advisor's full display name, derived at call time
// from the current identity fields. Bulk student assignment stores this
// string; later name corrections do not rewrite historical matches.
func (i Identity) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(i.GivenName) + " " + strings.TrimSpace(i.FamilyName))
}

// PreRegistration is the advisor application record. Never destroyed;
// soft-retained for audit.
type PreRegistration struct {
	ID        shared.PreregistrationID
	Identity  Identity
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a pending pre-registration from validated identity fields.
func New(id shared.PreregistrationID, identity Identity, now time.Time) (*PreRegistration, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	return &PreRegistration{
		ID:        id,
		Identity:  identity,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TransitionTo moves the pre-registration to the next status, enforcing
// the transition table. Moving to the current status is a no-op.
func (p *PreRegistration) TransitionTo(next Status, now time.Time) error {
	if !next.IsValid() {
		return shared.ErrInvalidStatus
	}
	if !p.Status.CanTransitionTo(next) {
		return shared.WrapError("preregistration", "Transition", shared.ErrStateTransition,
			string(p.Status)+" -> "+string(next), shared.ErrIllegalTransition)
	}
	if p.Status == next {
		return nil
	}
	p.Status = next
	p.UpdatedAt = now
	return nil
}

// EnsureTesting moves a pending or rejected pre-registration into testing.
// Used when the first scoring event arrives and on finalize retakes.
// Completed records are left untouched.
func (p *PreRegistration) EnsureTesting(now time.Time) error {
	switch p.Status {
	case StatusTesting, StatusCompleted:
		return nil
	default:
		return p.TransitionTo(StatusTesting, now)
	}
}

// IsCompleted reports whether credentials have already been issued.
func (p *PreRegistration) IsCompleted() bool {
	return p.Status == StatusCompleted
}
