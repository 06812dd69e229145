package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// PreregistrationID identifies an advisor pre-registration (UUID format).
type PreregistrationID string

// IsValid checks if the ID is a valid UUID.
func (p PreregistrationID) IsValid() bool {
	return uuidRegex.MatchString(string(p))
}

// String returns the string representation.
func (p PreregistrationID) String() string {
	return string(p)
}

// IsEmpty checks if the ID is empty.
func (p PreregistrationID) IsEmpty() bool {
	return p == ""
}

// NewPreregistrationID creates a PreregistrationID with validation.
func NewPreregistrationID(id string) (PreregistrationID, error) {
	pid := PreregistrationID(strings.ToLower(strings.TrimSpace(id)))
	if !pid.IsValid() {
		return "", NewDomainError("shared", "NewPreregistrationID", ErrInvalidID, "invalid preregistration ID format")
	}
	return pid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Contact Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Contact is the unique contact identifier of a prospective advisor
// (email address in practice). Uniqueness is enforced by the store.
type Contact string

var contactRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValid checks basic contact shape.
func (c Contact) IsValid() bool {
	return contactRegex.MatchString(string(c))
}

// String returns the string representation.
func (c Contact) String() string {
	return string(c)
}

// NewContact creates a Contact with validation and normalization.
func NewContact(value string) (Contact, error) {
	c := Contact(strings.ToLower(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", NewDomainError("shared", "NewContact", ErrInvalidFormat, "invalid contact identifier")
	}
	return c, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// GroupLabel Value Object
// ═══════════════════════════════════════════════════════════════════════════

// GroupLabel is a cohort label used to batch-assign students to an advisor.
type GroupLabel string

// Group labels are short alphanumeric codes like "A1" or "SAB-21".
var groupLabelRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,10}$`)

// IsValid checks the label against the strict short format.
func (g GroupLabel) IsValid() bool {
	return groupLabelRegex.MatchString(string(g))
}

// String returns the string representation.
func (g GroupLabel) String() string {
	return string(g)
}

// Normalized returns the comparison form of the label.
func (g GroupLabel) Normalized() string {
	return Fold(string(g))
}

// NewGroupLabel creates a GroupLabel with validation.
func NewGroupLabel(value string) (GroupLabel, error) {
	g := GroupLabel(strings.TrimSpace(value))
	if !g.IsValid() {
		return "", NewDomainError("shared", "NewGroupLabel", ErrInvalidFormat, "group label must be 1-10 chars of [A-Za-z0-9_-]")
	}
	return g, nil
}

// DedupGroupLabels validates and deduplicates raw labels, keeping the
// first-seen original casing. Labels that compare equal after Fold count
// as duplicates. Invalid labels are dropped silently.
func DedupGroupLabels(raw []string) []GroupLabel {
	seen := make(map[string]struct{}, len(raw))
	out := make([]GroupLabel, 0, len(raw))
	for _, r := range raw {
		g, err := NewGroupLabel(r)
		if err != nil {
			continue
		}
		key := g.Normalized()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, g)
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters for list queries.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a Pagination with defaults applied.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}
