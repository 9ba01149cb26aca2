package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/soloviev-dev/contactio/internal/domain/user"
	"github.com/soloviev-dev/contactio/internal/password"
	"github.com/soloviev-dev/contactio/internal/token"
)

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*user.User
	nextID   int64
	getCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*user.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Email]; ok {
		return user.ErrExists
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now().UTC()
	cp := *u
	r.users[u.Email] = &cp
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	u, ok := r.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) SetRefreshToken(_ context.Context, email string, tok *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return user.ErrNotFound
	}
	u.RefreshToken = tok
	return nil
}

func (r *fakeUserRepo) SwapRefreshToken(_ context.Context, email, current, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != current {
		return user.ErrTokenMismatch
	}
	u.RefreshToken = &next
	return nil
}

func (r *fakeUserRepo) Confirm(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return user.ErrNotFound
	}
	u.Confirmed = true
	return nil
}

func (r *fakeUserRepo) UpdateAvatar(_ context.Context, email, url string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.Avatar = &url
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) stored(email string) *user.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*user.User
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*user.User)}
}

func (c *fakeCache) Get(_ context.Context, email string) (*user.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.entries[email]
	if !ok {
		return nil, user.ErrCacheMiss
	}
	cp := *u
	return &cp, nil
}

func (c *fakeCache) Put(_ context.Context, email string, u *user.User, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	cp := *u
	c.entries[email] = &cp
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, email)
	return nil
}

type fakeMailer struct {
	sent chan string // confirm tokens
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{sent: make(chan string, 8)}
}

func (m *fakeMailer) SendConfirmation(_ context.Context, _, _, confirmToken string) error {
	m.sent <- confirmToken
	return nil
}

func (m *fakeMailer) waitToken(t *testing.T) string {
	t.Helper()
	select {
	case tok := <-m.sent:
		return tok
	case <-time.After(2 * time.Second):
		t.Fatal("no confirmation email dispatched")
		return ""
	}
}

// tickingClock advances one second per reading so that consecutively
// issued tokens never share an iat and therefore never collide.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type env struct {
	uc     *Usecase
	repo   *fakeUserRepo
	cache  *fakeCache
	mailer *fakeMailer
	codec  *token.Codec
}

func newEnv(t *testing.T) *env {
	t.Helper()

	repo := newFakeUserRepo()
	cache := newFakeCache()
	mail := newFakeMailer()
	clock := &tickingClock{t: time.Now().UTC()}
	codec := token.NewCodec(token.Config{Secret: []byte("unit-test-secret"), Now: clock.Now})
	hasher := password.NewHasher(bcrypt.MinCost)

	uc := NewUsecase(repo, cache, codec, hasher, mail, Config{}, nil)
	return &env{uc: uc, repo: repo, cache: cache, mailer: mail, codec: codec}
}

func (e *env) registerConfirmed(t *testing.T, email, pass string) {
	t.Helper()
	ctx := context.Background()

	_, err := e.uc.Register(ctx, email, "spongebob", pass)
	require.NoError(t, err)

	tok := e.mailer.waitToken(t)
	already, err := e.uc.ConfirmEmail(ctx, tok)
	require.NoError(t, err)
	require.False(t, already)
}

func TestLoginBeforeConfirmationFails(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.uc.Register(ctx, "a@x.com", "spongebob", "secret1")
	require.NoError(t, err)
	assert.False(t, u.Confirmed)
	require.NotNil(t, u.Avatar)
	assert.Contains(t, *u.Avatar, "gravatar.com/avatar/")

	_, err = e.uc.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.uc.Register(ctx, "a@x.com", "spongebob", "secret1")
	require.NoError(t, err)

	_, err = e.uc.Register(ctx, "a@x.com", "patrick", "secret2")
	assert.ErrorIs(t, err, ErrAccountExists)
}

func TestLoginFailures(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.registerConfirmed(t, "a@x.com", "secret1")

	_, err := e.uc.Login(ctx, "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, ErrUnknownAccount)

	_, err = e.uc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestLoginIssuesPairAndStoresRefreshToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.registerConfirmed(t, "a@x.com", "secret1")

	pair, err := e.uc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	stored := e.repo.stored("a@x.com")
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *stored.RefreshToken)

	_, err = e.codec.DecodeAccess(pair.AccessToken)
	require.NoError(t, err)
	_, err = e.codec.DecodeRefresh(pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRotatesToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.registerConfirmed(t, "a@x.com", "secret1")

	first, err := e.uc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	second, err := e.uc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	stored := e.repo.stored("a@x.com")
	require.NotNil(t, stored.RefreshToken)
	assert.Equal(t, second.RefreshToken, *stored.RefreshToken)
}

func TestRefreshReuseRevokesAccount(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.registerConfirmed(t, "a@x.com", "secret1")

	first, err := e.uc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = e.uc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	// replaying the superseded token clears the live one entirely
	_, err = e.uc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.Nil(t, e.repo.stored("a@x.com").RefreshToken)
}

func TestRefreshRejectsWrongScopeAndGarbage(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.registerConfirmed(t, "a@x.com", "secret1")

	pair, err := e.uc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = e.uc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, token.ErrScopeMismatch)

	_, err = e.uc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, token.ErrInvalidSignature)
}

func TestLogoutClearsRefreshToken(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.registerConfirmed(t, "a@x.com", "secret1")

	pair, err := e.uc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, e.uc.Logout(ctx, pair.RefreshToken))
	assert.Nil(t, e.repo.stored("a@x.com").RefreshToken)

	_, err = e.uc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestResolveIdentityReadThrough(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.registerConfirmed(t, "a@x.com", "secret1")

	pair, err := e.uc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	before := e.repo.getCalls
	got, err := e.uc.ResolveIdentity(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, 1, e.cache.puts)
	assert.Equal(t, before+1, e.repo.getCalls)

	// second resolution is served from the cache
	_, err = e.uc.ResolveIdentity(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, before+1, e.repo.getCalls)
	assert.Equal(t, 1, e.cache.puts)
}

func TestResolveIdentityFailures(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.registerConfirmed(t, "a@x.com", "secret1")

	pair, err := e.uc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	// refresh token on the access gate is a scope violation
	_, err = e.uc.ResolveIdentity(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = e.uc.ResolveIdentity(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	orphan, err := e.codec.IssueAccess("ghost@x.com")
	require.NoError(t, err)
	_, err = e.uc.ResolveIdentity(ctx, orphan)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestConfirmEmailIsIdempotent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.uc.Register(ctx, "a@x.com", "spongebob", "secret1")
	require.NoError(t, err)
	tok := e.mailer.waitToken(t)

	already, err := e.uc.ConfirmEmail(ctx, tok)
	require.NoError(t, err)
	assert.False(t, already)
	assert.True(t, e.repo.stored("a@x.com").Confirmed)

	already, err = e.uc.ConfirmEmail(ctx, tok)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestConfirmEmailErrors(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	ghost, err := e.codec.IssueConfirm("ghost@x.com")
	require.NoError(t, err)
	_, err = e.uc.ConfirmEmail(ctx, ghost)
	assert.ErrorIs(t, err, ErrVerification)

	access, err := e.codec.IssueAccess("a@x.com")
	require.NoError(t, err)
	_, err = e.uc.ConfirmEmail(ctx, access)
	assert.ErrorIs(t, err, token.ErrScopeMismatch)
}

func TestConfirmEmailDropsCachedSnapshot(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.uc.Register(ctx, "a@x.com", "spongebob", "secret1")
	require.NoError(t, err)
	require.NoError(t, e.cache.Put(ctx, u.Email, u, time.Minute))

	tok := e.mailer.waitToken(t)
	_, err = e.uc.ConfirmEmail(ctx, tok)
	require.NoError(t, err)

	_, err = e.cache.Get(ctx, u.Email)
	assert.ErrorIs(t, err, user.ErrCacheMiss)
}

func TestRequestConfirmation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	// unknown accounts get the same answer, nothing is sent
	already, err := e.uc.RequestConfirmation(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.False(t, already)

	_, err = e.uc.Register(ctx, "a@x.com", "spongebob", "secret1")
	require.NoError(t, err)
	e.mailer.waitToken(t) // signup email

	already, err = e.uc.RequestConfirmation(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, already)
	tok := e.mailer.waitToken(t)

	_, err = e.uc.ConfirmEmail(ctx, tok)
	require.NoError(t, err)

	already, err = e.uc.RequestConfirmation(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, already)
}

func TestUpdateAvatarInvalidatesCache(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.registerConfirmed(t, "a@x.com", "secret1")

	pair, err := e.uc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = e.uc.ResolveIdentity(ctx, pair.AccessToken)
	require.NoError(t, err)

	updated, err := e.uc.UpdateAvatar(ctx, "a@x.com", "https://cdn.example.com/pic.png")
	require.NoError(t, err)
	require.NotNil(t, updated.Avatar)
	assert.Equal(t, "https://cdn.example.com/pic.png", *updated.Avatar)

	// next resolution must see the new avatar, not the cached snapshot
	got, err := e.uc.ResolveIdentity(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, got.Avatar)
	assert.Equal(t, "https://cdn.example.com/pic.png", *got.Avatar)
}

func TestEndToEndFlow(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.uc.Register(ctx, "a@x.com", "spongebob", "secret1")
	require.NoError(t, err)

	tok := e.mailer.waitToken(t)
	already, err := e.uc.ConfirmEmail(ctx, tok)
	require.NoError(t, err)
	require.False(t, already)

	pair, err := e.uc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	got, err := e.uc.ResolveIdentity(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	assert.True(t, got.Confirmed)
}
