// Package token encodes and decodes the signed bearer tokens used for
// sessions and email confirmation. Every token carries a scope discriminator
// and each decode entry point accepts exactly one scope.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Scope string

const (
	ScopeAccess       Scope = "access"
	ScopeRefresh      Scope = "refresh"
	ScopeEmailConfirm Scope = "email-confirm"
)

var (
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
	ErrScopeMismatch    = errors.New("invalid scope for token")
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultConfirmTTL = 7 * 24 * time.Hour
)

// AccessClaims authorize a single request on behalf of Subject.
type AccessClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshClaims entitle Subject to a new token pair, provided the raw token
// still matches the one stored on the account.
type RefreshClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ConfirmClaims prove ownership of the Subject email address.
type ConfirmClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type wireClaims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ConfirmTTL time.Duration
	Now        func() time.Time
}

// Codec signs and verifies tokens with a process-wide HS256 key. Rotating
// the key invalidates every outstanding token.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	confirmTTL time.Duration
	now        func() time.Time
}

func NewCodec(cfg Config) *Codec {
	c := &Codec{
		secret:     cfg.Secret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		confirmTTL: cfg.ConfirmTTL,
		now:        cfg.Now,
	}
	if c.accessTTL == 0 {
		c.accessTTL = DefaultAccessTTL
	}
	if c.refreshTTL == 0 {
		c.refreshTTL = DefaultRefreshTTL
	}
	if c.confirmTTL == 0 {
		c.confirmTTL = DefaultConfirmTTL
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

func (c *Codec) IssueAccess(email string) (string, error) {
	return c.Issue(email, ScopeAccess, c.accessTTL)
}

func (c *Codec) IssueRefresh(email string) (string, error) {
	return c.Issue(email, ScopeRefresh, c.refreshTTL)
}

func (c *Codec) IssueConfirm(email string) (string, error) {
	return c.Issue(email, ScopeEmailConfirm, c.confirmTTL)
}

// Issue signs a claims set with the given scope and ttl. The ttl is applied
// as-is, so a zero or negative ttl yields an already-expired token.
func (c *Codec) Issue(email string, scope Scope, ttl time.Duration) (string, error) {
	now := c.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, wireClaims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", scope, err)
	}
	return signed, nil
}

func (c *Codec) DecodeAccess(tokenString string) (*AccessClaims, error) {
	cl, err := c.decode(tokenString, ScopeAccess)
	if err != nil {
		return nil, err
	}
	return &AccessClaims{
		Subject:   cl.Subject,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

func (c *Codec) DecodeRefresh(tokenString string) (*RefreshClaims, error) {
	cl, err := c.decode(tokenString, ScopeRefresh)
	if err != nil {
		return nil, err
	}
	return &RefreshClaims{
		Subject:   cl.Subject,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

func (c *Codec) DecodeConfirm(tokenString string) (*ConfirmClaims, error) {
	cl, err := c.decode(tokenString, ScopeEmailConfirm)
	if err != nil {
		return nil, err
	}
	return &ConfirmClaims{
		Subject:   cl.Subject,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

func (c *Codec) decode(tokenString string, want Scope) (*wireClaims, error) {
	var cl wireClaims
	_, err := jwt.ParseWithClaims(tokenString, &cl,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			// scope mismatch wins even on an expired token
			if cl.Scope != "" && cl.Scope != want {
				return nil, ErrScopeMismatch
			}
			return nil, ErrExpired
		default:
			return nil, ErrInvalidSignature
		}
	}
	if cl.Scope != want {
		return nil, ErrScopeMismatch
	}
	return &cl, nil
}
