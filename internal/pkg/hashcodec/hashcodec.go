// Package hashcodec produces and verifies stored password hashes.
//
// Two formats are recognised:
//
//	$2a$/$2b$/$2y$...            legacy bcrypt, verified but never produced
//	<hex salt>:<hex sha256>      canonical salted SHA-256, SHA256(password || salt)
//
// The format of a stored string is decided once by Parse; Check then performs a
// single exhaustive match over it. Verification never returns an error: every
// failure is a false result with a Reason for server-side diagnostics.
package hashcodec

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	// SaltBytes is the amount of randomness in a canonical salt.
	SaltBytes = 16

	// UnsetSentinel marks a record whose password was never provisioned.
	// It always fails verification.
	UnsetSentinel = "!unset"
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// Format is the closed set of stored hash shapes.
type Format int

const (
	FormatMalformed Format = iota
	FormatUnset
	FormatLegacyBcrypt
	FormatSaltedSHA256
)

func (f Format) String() string {
	switch f {
	case FormatUnset:
		return "unset"
	case FormatLegacyBcrypt:
		return "bcrypt"
	case FormatSaltedSHA256:
		return "salted_sha256"
	default:
		return "malformed"
	}
}

// Reason explains a verification outcome.
type Reason string

const (
	ReasonMatch     Reason = "match"
	ReasonMismatch  Reason = "mismatch"
	ReasonMalformed Reason = "malformed"
	ReasonUnset     Reason = "unset"
	ReasonEmpty     Reason = "empty"
)

// Encoded is a stored hash after format detection.
type Encoded struct {
	Format Format
	Raw    string
	Salt   string
	Digest string
}

// Outcome is the internal verification result.
type Outcome struct {
	Format Format
	Reason Reason
}

// Valid reports whether the password matched.
func (o Outcome) Valid() bool { return o.Reason == ReasonMatch }

// Parse classifies a stored hash string. It never fails; unrecognised input is
// FormatMalformed.
func Parse(stored string) Encoded {
	if stored == UnsetSentinel {
		return Encoded{Format: FormatUnset, Raw: stored}
	}
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(stored, p) {
			return Encoded{Format: FormatLegacyBcrypt, Raw: stored}
		}
	}
	parts := strings.Split(stored, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Encoded{Format: FormatMalformed, Raw: stored}
	}
	return Encoded{Format: FormatSaltedSHA256, Raw: stored, Salt: parts[0], Digest: parts[1]}
}

// Codec hashes and verifies passwords. The zero value is usable and logs nothing.
type Codec struct {
	rand io.Reader
	log  zerolog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger used for sentinel and malformed-hash diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Codec) { c.log = log }
}

// WithRand overrides the salt entropy source.
func WithRand(r io.Reader) Option {
	return func(c *Codec) { c.rand = r }
}

// New returns a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{rand: rand.Reader, log: zerolog.Nop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Hash returns the canonical encoding of password with a fresh salt.
func (c *Codec) Hash(password string) (string, error) {
	r := c.rand
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, SaltBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("hashcodec: read salt: %w", err)
	}
	salt := hex.EncodeToString(b)
	return salt + ":" + digest(password, salt), nil
}

// Verify reports whether password matches stored.
func (c *Codec) Verify(password, stored string) bool {
	return c.Check(password, stored).Valid()
}

// Check verifies password against stored and explains the result.
func (c *Codec) Check(password, stored string) Outcome {
	if stored == "" {
		return Outcome{Format: FormatMalformed, Reason: ReasonEmpty}
	}

	enc := Parse(stored)
	switch enc.Format {
	case FormatUnset:
		c.log.Warn().Msg("verification against unset password sentinel; record was never provisioned")
		return Outcome{Format: enc.Format, Reason: ReasonUnset}
	case FormatLegacyBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(enc.Raw), []byte(password))
		switch {
		case err == nil:
			return Outcome{Format: enc.Format, Reason: ReasonMatch}
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return Outcome{Format: enc.Format, Reason: ReasonMismatch}
		default:
			c.log.Debug().Err(err).Msg("unreadable bcrypt hash")
			return Outcome{Format: enc.Format, Reason: ReasonMalformed}
		}
	case FormatSaltedSHA256:
		if subtle.ConstantTimeCompare([]byte(digest(password, enc.Salt)), []byte(enc.Digest)) == 1 {
			return Outcome{Format: enc.Format, Reason: ReasonMatch}
		}
		return Outcome{Format: enc.Format, Reason: ReasonMismatch}
	case FormatMalformed:
		return Outcome{Format: enc.Format, Reason: ReasonMalformed}
	default:
		return Outcome{Format: FormatMalformed, Reason: ReasonMalformed}
	}
}

// IsCanonical reports whether stored is in the format Hash produces.
func IsCanonical(stored string) bool {
	return Parse(stored).Format == FormatSaltedSHA256
}

func digest(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}
