package auth

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/account-service/internal/user"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("token signature mismatch")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenKind = errors.New("wrong token kind")
)

// Kind distinguishes short-lived access tokens from long-lived refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"

	// KindAny accepts either kind; used by guards for endpoints such as logout.
	KindAny Kind = ""
)

// Claims is the payload carried by a session token.
type Claims struct {
	jwt.RegisteredClaims
	Kind  Kind `json:"kind"`
	Reset bool `json:"reset_password,omitempty"`
}

// SubjectLookup resolves a token's subject to its current user record.
// Implemented by the user repository.
type SubjectLookup interface {
	FindByID(ctx context.Context, id int64) (*user.User, error)
}

// Codec issues and verifies signed session tokens. The signing key for each
// token is sha256(subject's stored password hash || server secret), so a
// password change or account deletion invalidates every outstanding token for
// that subject without any revocation bookkeeping.
type Codec struct {
	lookup SubjectLookup
	secret []byte
}

func NewCodec(lookup SubjectLookup, secret []byte) *Codec {
	return &Codec{lookup: lookup, secret: secret}
}

// Issue creates a signed token of the given kind for the user.
func (c *Codec) Issue(u *user.User, kind Kind, ttl time.Duration) (string, error) {
	return c.issue(u, kind, ttl, false)
}

// IssueReset creates a short-lived access token carrying the one-shot
// password-reset claim.
func (c *Codec) IssueReset(u *user.User, ttl time.Duration) (string, error) {
	return c.issue(u, KindAccess, ttl, true)
}

func (c *Codec) issue(u *user.User, kind Kind, ttl time.Duration, reset bool) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind:  kind,
		Reset: reset,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.signingKey(u))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token. The subject is looked up before
// signature verification so the key can be derived from the user's current
// password hash; a stale hash therefore fails as a bad signature. Returns the
// claims and the subject's loaded user record.
func (c *Codec) Verify(ctx context.Context, tokenStr string) (*Claims, *user.User, error) {
	claims := new(Claims)
	var subject *user.User

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	_, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		tc, ok := t.Claims.(*Claims)
		if !ok {
			return nil, ErrMalformedToken
		}

		id, err := strconv.ParseInt(tc.Subject, 10, 64)
		if err != nil {
			return nil, ErrMalformedToken
		}

		u, err := c.lookup.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				// Deleted subject means no key can be derived
				return nil, ErrBadSignature
			}
			return nil, fmt.Errorf("failed to look up token subject: %w", err)
		}

		subject = u
		return c.signingKey(u), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformedToken) || errors.Is(err, ErrBadSignature):
			return nil, nil, err
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, nil, ErrBadSignature
		default:
			return nil, nil, fmt.Errorf("failed to verify token: %w", err)
		}
	}

	if claims.ID == "" || (claims.Kind != KindAccess && claims.Kind != KindRefresh) {
		return nil, nil, ErrMalformedToken
	}

	return claims, subject, nil
}

func (c *Codec) signingKey(u *user.User) []byte {
	key := sha256.Sum256(append([]byte(u.PasswordHash), c.secret...))
	return key[:]
}
