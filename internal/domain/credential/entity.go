// Package credential contains the login credential domain: handle
// derivation, one-time secret generation, and the issued credential
// record linked to an approved advisor.
package credential

import (
	"time"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// RoleAdvisor is the fixed role marker for credentials issued by the
// onboarding pipeline.
const RoleAdvisor = "advisor"

// Credential is a persisted login credential. The secret is stored only
// as a bcrypt hash; the plaintext is returned to the caller exactly once
// at issuance and never stored or logged. Created exactly once per
// approved pre-registration — reissuing requires a separate explicit flow.
type Credential struct {
	ID                string
	PreregistrationID shared.PreregistrationID
	Handle            string
	SecretHash        []byte
	Role              string
	IssuedAt          time.Time
}

// IssuedPair is the plaintext handle and secret handed to the caller at
// issuance. Never persist or log this value.
type IssuedPair struct {
	Handle string `json:"handle"`
	Secret string `json:"secret"`
}
