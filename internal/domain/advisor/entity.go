// Package advisor contains the extended advisor profile: documents,
// assigned groups, and the link to an issued credential. A profile is
// 1:1 with a pre-registration once created.
package advisor

import (
	"time"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// Profile is the advisor's extended record.
//
// Group (singular) predates the Groups list and is kept for backward
// compatibility: whenever Groups is non-empty, Group equals Groups[0].
type Profile struct {
	ID                string
	PreregistrationID shared.PreregistrationID
	Group             shared.GroupLabel
	Groups            []shared.GroupLabel
	Phone             string
	Address           string
	DegreeTitle       string
	// DocumentPaths holds storage references served by the external
	// document service. The pipeline only persists the paths.
	DocumentPaths map[string]string
	CredentialID  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SetGroups replaces the assigned group list, keeping the mirrored
// singular field in sync. Labels must already be validated and
// deduplicated (shared.DedupGroupLabels).
// Returns shared.ErrNoValidGroups on an empty list.
func (p *Profile) SetGroups(groups []shared.GroupLabel, now time.Time) error {
	if len(groups) == 0 {
		return shared.ErrNoValidGroups
	}
	p.Groups = groups
	p.Group = groups[0]
	p.UpdatedAt = now
	return nil
}

// PrimaryGroup returns the first assigned group, or "" when none.
func (p *Profile) PrimaryGroup() shared.GroupLabel {
	if len(p.Groups) > 0 {
		return p.Groups[0]
	}
	return p.Group
}

// LinkCredential records the issued credential on the profile.
func (p *Profile) LinkCredential(credentialID string, now time.Time) {
	p.CredentialID = &credentialID
	p.UpdatedAt = now
}
