// Package totp generates time-based one-time passwords for second factor
// login prompts. Codes are a pure function of the shared seed and the clock,
// nothing is retained between calls.
package totp

import (
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

// rolling validity window per RFC 6238
const Period = 30 * time.Second

// A generated code together with the instant it was generated at. Callers
// are expected to check Expired right before submitting it, a code must
// never outlive the window it was generated in.
type Code struct {
	Value       string
	GeneratedAt time.Time
}

func normalizeSeed(seed string) string {
	seed = strings.ToUpper(strings.TrimSpace(seed))
	return strings.ReplaceAll(seed, " ", "")
}

// ValidateSeed reports whether the seed is decodable base32. A seed that
// fails here can never produce a valid code, so callers should fail fast
// before driving any login flow with it.
func ValidateSeed(seed string) error {
	if seed == "" {
		return fmt.Errorf("totp seed is empty")
	}
	_, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(
		strings.TrimRight(normalizeSeed(seed), "="),
	)
	if err != nil {
		return fmt.Errorf("totp seed is not valid base32: %w", err)
	}
	return nil
}

func Generate(seed string, now time.Time) (Code, error) {
	value, err := totp.GenerateCode(normalizeSeed(seed), now)
	if err != nil {
		return Code{}, err
	}
	return Code{Value: value, GeneratedAt: now}, nil
}

// the start of the validity window the code was generated in
func (c Code) windowStart() time.Time {
	period := int64(Period / time.Second)
	return time.Unix(c.GeneratedAt.Unix()/period*period, 0)
}

// ExpiresAt returns the end of the validity window the code was generated
// in. Servers usually accept one step of clock skew but that is not
// something to rely on.
func (c Code) ExpiresAt() time.Time {
	return c.windowStart().Add(Period)
}

func (c Code) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt())
}

// Remaining reports how much of the validity window is left.
func (c Code) Remaining(now time.Time) time.Duration {
	d := c.ExpiresAt().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
