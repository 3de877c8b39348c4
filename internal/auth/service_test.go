package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securechat/securechat/internal/common"
	"github.com/securechat/securechat/internal/cryptox"
	"github.com/securechat/securechat/internal/keys"
	"github.com/securechat/securechat/internal/logging"
	"github.com/securechat/securechat/internal/models"
	"github.com/securechat/securechat/internal/profile"
	"github.com/securechat/securechat/internal/repositories/users"
)

// testIterations keeps PBKDF2 fast in tests; production uses the default.
const testIterations = 1000

type captchaStub struct{ ok bool }

func (c *captchaStub) Verify(context.Context, string, string) bool { return c.ok }

func newTestService(t *testing.T) (*Service, *users.MemoryRepository) {
	t.Helper()
	repo := users.NewMemoryRepository()
	cipher, err := profile.NewCipher(cryptox.RandBytes(cryptox.KeySize))
	require.NoError(t, err)
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := NewService(repo, &captchaStub{ok: true}, cipher, []byte("test-secret"), testIterations, logger)
	return svc, repo
}

func register(t *testing.T, svc *Service, username, password string) {
	t.Helper()
	err := svc.Register(context.Background(), username, []byte(password), models.Profile{}, "id", "answer")
	require.NoError(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	err := svc.Register(ctx, "alice", []byte("correct horse"), models.Profile{Email: "alice@example.com"}, "id", "7")
	require.NoError(t, err)

	// stored record must never contain plaintext key material
	u, err := repo.Find(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, u.PasswordSaltB64)
	assert.NotEmpty(t, u.PasswordHashB64)
	assert.Equal(t, testIterations, u.PasswordIterations)
	assert.NotEmpty(t, u.SigningKeyEnvelope.CiphertextB64)
	assert.NotEmpty(t, u.ExchangeKeyEnvelope.CiphertextB64)
	assert.NotEqual(t, "alice@example.com", u.EncryptedEmail)

	session, err := svc.Login(ctx, "alice", []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Username())
	assert.NotEmpty(t, session.Token())

	// the unlocked signing key must survive the envelope wipe and match
	// the published public key
	priv := session.SigningPrivate()
	assert.NotEqual(t, make([]byte, len(priv)), []byte(priv))
	sig := keys.Sign(priv, []byte("hello"))
	assert.True(t, keys.Verify(session.SigningPublic(), []byte("hello"), sig))
	require.NotNil(t, session.ExchangePrivate())
	require.NotNil(t, session.ExchangePublic())
}

func TestRegisterCaptchaRejected(t *testing.T) {
	svc, _ := newTestService(t)
	svc.captcha = &captchaStub{ok: false}

	err := svc.Register(context.Background(), "alice", []byte("pw"), models.Profile{}, "id", "wrong")
	assert.ErrorIs(t, err, common.ErrCaptchaFailed)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice", "first")

	err := svc.Register(context.Background(), "alice", []byte("second"), models.Profile{}, "id", "7")
	assert.ErrorIs(t, err, common.ErrDuplicateUser)
}

// createCountingRepo counts Create calls so tests can assert the duplicate
// check rejects a taken name before any credential material is built.
type createCountingRepo struct {
	users.Repository
	creates int
}

func (r *createCountingRepo) Create(ctx context.Context, u *models.User) error {
	r.creates++
	return r.Repository.Create(ctx, u)
}

func TestRegisterDuplicateRejectedBeforeKeyWork(t *testing.T) {
	svc, _ := newTestService(t)
	counting := &createCountingRepo{Repository: users.NewMemoryRepository()}
	svc.repo = counting

	register(t, svc, "alice", "first")
	require.Equal(t, 1, counting.creates)

	err := svc.Register(context.Background(), "alice", []byte("second"), models.Profile{}, "id", "7")
	assert.ErrorIs(t, err, common.ErrDuplicateUser)
	assert.Equal(t, 1, counting.creates)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Login(context.Background(), "nobody", []byte("pw"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLoginWrongPasswordCountsDown(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice", "right")
	ctx := context.Background()

	for i := 1; i < MaxFailedAttempts; i++ {
		_, err := svc.Login(ctx, "alice", []byte("wrong"))
		var ipe *common.InvalidPasswordError
		require.ErrorAs(t, err, &ipe)
		assert.Equal(t, MaxFailedAttempts-i, ipe.AttemptsRemaining)
	}

	_, err := svc.Login(ctx, "alice", []byte("wrong"))
	var locked *common.AccountLockedError
	require.ErrorAs(t, err, &locked)

	// the correct password is also refused while the window is open
	_, err = svc.Login(ctx, "alice", []byte("right"))
	require.ErrorAs(t, err, &locked)
	assert.Positive(t, locked.SecondsRemaining)
}

func TestLockoutExpiresLazily(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice", "right")
	ctx := context.Background()

	base := time.Now()
	svc.now = func() time.Time { return base }
	for i := 0; i < MaxFailedAttempts; i++ {
		_, err := svc.Login(ctx, "alice", []byte("wrong"))
		require.Error(t, err)
	}

	svc.now = func() time.Time { return base.Add(LockoutWindow + time.Second) }
	session, err := svc.Login(ctx, "alice", []byte("right"))
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Username())

	// successful login resets the counter, so one more bad attempt only
	// costs one attempt again
	_, err = svc.Login(ctx, "alice", []byte("wrong"))
	var ipe *common.InvalidPasswordError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, MaxFailedAttempts-1, ipe.AttemptsRemaining)
}

func TestSecondLoginDisplacesFirstSession(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice", "pw")
	ctx := context.Background()

	first, err := svc.Login(ctx, "alice", []byte("pw"))
	require.NoError(t, err)
	second, err := svc.Login(ctx, "alice", []byte("pw"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Token(), second.Token())

	ok, err := svc.IsSessionValid(ctx, "alice", first.Token())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsSessionValid(ctx, "alice", second.Token())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsSessionValidEmptyToken(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice", "pw")

	ok, err := svc.IsSessionValid(context.Background(), "alice", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogoutRecordsTime(t *testing.T) {
	svc, repo := newTestService(t)
	register(t, svc, "alice", "pw")
	ctx := context.Background()

	session, err := svc.Login(ctx, "alice", []byte("pw"))
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, session))

	u, err := repo.Find(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u.LastLogoutAt)
	assert.WithinDuration(t, time.Now(), *u.LastLogoutAt, time.Minute)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice", "old pw")
	ctx := context.Background()

	before, err := svc.Login(ctx, "alice", []byte("old pw"))
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, "alice", []byte("old pw"), []byte("new pw"))
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", []byte("old pw"))
	var ipe *common.InvalidPasswordError
	assert.ErrorAs(t, err, &ipe)

	after, err := svc.Login(ctx, "alice", []byte("new pw"))
	require.NoError(t, err)

	// the long-term keys survive the password change unchanged
	assert.Equal(t, before.SigningPublic(), after.SigningPublic())
	sig := keys.Sign(after.SigningPrivate(), []byte("hello"))
	assert.True(t, keys.Verify(before.SigningPublic(), []byte("hello"), sig))
}

func TestChangePasswordWrongOldPassword(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice", "right")

	err := svc.ChangePassword(context.Background(), "alice", []byte("wrong"), []byte("new"))
	var ipe *common.InvalidPasswordError
	assert.ErrorAs(t, err, &ipe)
}

func TestChangePasswordCountsTowardLockout(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice", "right")
	ctx := context.Background()

	for i := 0; i < MaxFailedAttempts; i++ {
		err := svc.ChangePassword(ctx, "alice", []byte("wrong"), []byte("new"))
		require.Error(t, err)
	}

	_, err := svc.Login(ctx, "alice", []byte("right"))
	var locked *common.AccountLockedError
	assert.ErrorAs(t, err, &locked)
}

func TestProfileRoundTrip(t *testing.T) {
	svc, repo := newTestService(t)
	register(t, svc, "alice", "pw")
	ctx := context.Background()

	want := models.Profile{
		Email:    "alice@example.com",
		FullName: "Alice Example",
		Address:  "1 Main St",
		Gender:   "F",
	}
	require.NoError(t, svc.UpdateProfile(ctx, "alice", want))

	got, err := svc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	// ciphertext at rest differs from the plaintext
	u, err := repo.Find(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, want.Email, u.EncryptedEmail)
	assert.NotEqual(t, want.FullName, u.EncryptedFullName)
}

func TestAvatarRoundTrip(t *testing.T) {
	svc, repo := newTestService(t)
	register(t, svc, "alice", "pw")
	ctx := context.Background()

	none, err := svc.Avatar(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, none)

	img := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	require.NoError(t, svc.UpdateAvatar(ctx, "alice", img))

	got, err := svc.Avatar(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, img, got)

	u, err := repo.Find(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, u.EncryptedAvatar)
}

func TestSessionTokensAreUnique(t *testing.T) {
	now := time.Now()
	a, err := generateSessionToken([]byte("secret"), "alice", now)
	require.NoError(t, err)
	b, err := generateSessionToken([]byte("secret"), "alice", now)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
