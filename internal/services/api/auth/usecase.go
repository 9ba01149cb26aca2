// Package auth implements the session core: registration, login, token
// refresh and rotation, email confirmation, and per-request identity
// resolution through the read-through cache.
package auth

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soloviev-dev/contactio/internal/domain/user"
	"github.com/soloviev-dev/contactio/internal/password"
	"github.com/soloviev-dev/contactio/internal/token"
)

var (
	ErrAccountExists   = errors.New("account already exists")
	ErrUnknownAccount  = errors.New("invalid email")
	ErrNotConfirmed    = errors.New("email not confirmed")
	ErrBadCredentials  = errors.New("invalid password")
	ErrTokenRevoked    = errors.New("invalid refresh token")
	ErrUnauthenticated = errors.New("could not validate credentials")
	ErrVerification    = errors.New("verification error")
)

// Mailer is the fire-and-forget confirmation email collaborator.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, username, confirmToken string) error
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type Config struct {
	CacheTTL    time.Duration
	MailTimeout time.Duration
}

type Usecase struct {
	users  user.Repo
	cache  user.Cache
	codec  *token.Codec
	hasher *password.Hasher
	mailer Mailer
	cfg    Config
	log    *zap.Logger
}

func NewUsecase(users user.Repo, cache user.Cache, codec *token.Codec,
	hasher *password.Hasher, mailer Mailer, cfg Config, log *zap.Logger) *Usecase {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 900 * time.Second
	}
	if cfg.MailTimeout == 0 {
		cfg.MailTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{
		users:  users,
		cache:  cache,
		codec:  codec,
		hasher: hasher,
		mailer: mailer,
		cfg:    cfg,
		log:    log.With(zap.String("component", "auth.usecase")),
	}
}

// Register creates an unconfirmed account and dispatches the confirmation
// email in the background. Mail failures never surface to the caller.
func (u *Usecase) Register(ctx context.Context, email, username, pass string) (*user.User, error) {
	digest, err := u.hasher.Hash(pass)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	avatar := gravatarURL(email)
	newUser := &user.User{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		Avatar:       &avatar,
	}
	if err := u.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, user.ErrExists) {
			return nil, ErrAccountExists
		}
		return nil, err
	}

	u.dispatchConfirmation(newUser.Email, newUser.Username)
	return newUser, nil
}

// Login verifies credentials and issues a fresh token pair, persisting the
// refresh token value as the account's only live one.
func (u *Usecase) Login(ctx context.Context, email, pass string) (*TokenPair, error) {
	account, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}
	if !account.Confirmed {
		return nil, ErrNotConfirmed
	}
	if !u.hasher.Verify(pass, account.PasswordHash) {
		return nil, ErrBadCredentials
	}

	pair, err := u.issuePair(email)
	if err != nil {
		return nil, err
	}
	if err := u.users.SetRefreshToken(ctx, email, &pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

// Refresh rotates the token pair. Presenting a superseded refresh token is
// treated as a compromise signal: the stored token is cleared and the call
// fails, leaving the account with no live refresh token.
func (u *Usecase) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	claims, err := u.codec.DecodeRefresh(raw)
	if err != nil {
		return nil, err
	}

	if _, err := u.users.GetByEmail(ctx, claims.Subject); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}

	pair, err := u.issuePair(claims.Subject)
	if err != nil {
		return nil, err
	}
	if err := u.users.SwapRefreshToken(ctx, claims.Subject, raw, pair.RefreshToken); err != nil {
		if errors.Is(err, user.ErrTokenMismatch) {
			u.log.Warn("refresh token reuse detected", zap.String("email", claims.Subject))
			if clearErr := u.users.SetRefreshToken(ctx, claims.Subject, nil); clearErr != nil {
				u.log.Error("clear refresh token", zap.Error(clearErr))
			}
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return pair, nil
}

// Logout invalidates the account's live refresh token. Idempotent.
func (u *Usecase) Logout(ctx context.Context, raw string) error {
	claims, err := u.codec.DecodeRefresh(raw)
	if err != nil {
		return err
	}
	if err := u.users.SetRefreshToken(ctx, claims.Subject, nil); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	return nil
}

// ResolveIdentity is the per-request authorization gate: it decodes an
// access token and resolves the subject through the identity cache, falling
// back to the store and repopulating the cache on a miss.
func (u *Usecase) ResolveIdentity(ctx context.Context, accessToken string) (*user.User, error) {
	claims, err := u.codec.DecodeAccess(accessToken)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	if cached, err := u.cache.Get(ctx, claims.Subject); err == nil {
		return cached, nil
	} else if !errors.Is(err, user.ErrCacheMiss) {
		u.log.Warn("identity cache read", zap.Error(err))
	}

	account, err := u.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if err := u.cache.Put(ctx, claims.Subject, account, u.cfg.CacheTTL); err != nil {
		u.log.Warn("identity cache write", zap.Error(err))
	}
	return account, nil
}

// ConfirmEmail flips the account to confirmed. The transition happens once;
// repeat calls report already=true without erroring.
func (u *Usecase) ConfirmEmail(ctx context.Context, confirmToken string) (already bool, err error) {
	claims, err := u.codec.DecodeConfirm(confirmToken)
	if err != nil {
		return false, err
	}

	account, err := u.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		return false, ErrVerification
	}
	if account.Confirmed {
		return true, nil
	}

	if err := u.users.Confirm(ctx, claims.Subject); err != nil {
		return false, fmt.Errorf("confirm email: %w", err)
	}
	if err := u.cache.Invalidate(ctx, claims.Subject); err != nil {
		u.log.Warn("identity cache invalidate", zap.Error(err))
	}
	return false, nil
}

// RequestConfirmation re-sends the confirmation email for an unconfirmed
// account. Unknown emails get the same answer as known ones.
func (u *Usecase) RequestConfirmation(ctx context.Context, email string) (already bool, err error) {
	account, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if account.Confirmed {
		return true, nil
	}

	u.dispatchConfirmation(account.Email, account.Username)
	return false, nil
}

// UpdateAvatar stores a new avatar URL and drops the cached snapshot.
func (u *Usecase) UpdateAvatar(ctx context.Context, email, url string) (*user.User, error) {
	account, err := u.users.UpdateAvatar(ctx, email, url)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}
	if err := u.cache.Invalidate(ctx, email); err != nil {
		u.log.Warn("identity cache invalidate", zap.Error(err))
	}
	return account, nil
}

func (u *Usecase) issuePair(email string) (*TokenPair, error) {
	access, err := u.codec.IssueAccess(email)
	if err != nil {
		return nil, err
	}
	refresh, err := u.codec.IssueRefresh(email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// dispatchConfirmation issues a confirmation token and mails it without
// blocking the caller's success path.
func (u *Usecase) dispatchConfirmation(email, username string) {
	confirm, err := u.codec.IssueConfirm(email)
	if err != nil {
		u.log.Error("issue confirm token", zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), u.cfg.MailTimeout)
		defer cancel()
		if err := u.mailer.SendConfirmation(ctx, email, username, confirm); err != nil {
			u.log.Error("send confirmation email",
				zap.String("email", email), zap.Error(err))
		}
	}()
}

func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:])
}
