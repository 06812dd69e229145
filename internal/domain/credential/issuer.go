package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/academy-hub/academy-platform/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HANDLE DERIVATION
// ══════════════════════════════════════════════════════════════════════════════

// FallbackHandleToken is used when the advisor's given name normalizes to
// nothing usable (e.g. non-Latin script stripped entirely).
const FallbackHandleToken = "advisor"

// BaseHandle derives the collision-free base of a login handle from the
// advisor's given name: first token, diacritics stripped, lower-cased,
// non-letters/digits removed, then the fixed organizational suffix.
// "María José" with suffix "academy" → "maria.academy".
func BaseHandle(givenName, orgSuffix string) string {
	first := strings.Fields(strings.TrimSpace(givenName))
	token := ""
	if len(first) > 0 {
		token = shared.HandleToken(first[0])
	}
	if token == "" {
		token = FallbackHandleToken
	}
	return token + "." + orgSuffix
}

// HandleCandidate returns the nth candidate for a base handle. Attempt 1
// is the base itself; later attempts append "-2", "-3", and so on.
func HandleCandidate(base string, attempt int) string {
	if attempt <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, attempt)
}

// ══════════════════════════════════════════════════════════════════════════════
// SECRET GENERATION
// ══════════════════════════════════════════════════════════════════════════════

// Character classes for generated secrets. Ambiguous glyphs (I/O/l/o/0/1)
// are excluded so the one-time secret survives being read over the phone.
const (
	secretUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	secretLower   = "abcdefghijkmnpqrstuvwxyz"
	secretDigits  = "23456789"
	secretSymbols = "!@#$%&*+-_?"
)

// MinSecretLength is the minimum length of a generated secret.
const MinSecretLength = 10

// MinHashCost is the minimum bcrypt cost factor for persisted secrets.
const MinHashCost = 10

// GenerateSecret produces a random secret of the given length (floored at
// MinSecretLength) guaranteed to contain at least one character from each
// of the four classes. The guaranteed characters are shuffled into the
// sequence so their positions are not predictable.
func GenerateSecret(length int) (string, error) {
	if length < MinSecretLength {
		length = MinSecretLength
	}

	classes := []string{secretUpper, secretLower, secretDigits, secretSymbols}
	combined := strings.Join(classes, "")

	chars := make([]byte, 0, length)
	for _, class := range classes {
		c, err := randomByte(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < length {
		c, err := randomByte(combined)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	if err := shuffleBytes(chars); err != nil {
		return "", err
	}
	return string(chars), nil
}

// HashSecret hashes a plaintext secret with bcrypt at the given cost,
// floored at MinHashCost.
func HashSecret(secret string, cost int) ([]byte, error) {
	if cost < MinHashCost {
		cost = MinHashCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, fmt.Errorf("credential: hashing secret: %w", err)
	}
	return hash, nil
}

// VerifySecret compares a plaintext secret against a stored hash.
func VerifySecret(hash []byte, secret string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(secret)) == nil
}

func randomByte(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("credential: random source failed: %w", err)
	}
	return alphabet[n.Int64()], nil
}

// shuffleBytes performs a Fisher-Yates shuffle driven by crypto/rand.
func shuffleBytes(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("credential: random source failed: %w", err)
		}
		j := n.Int64()
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
