package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/securechat/securechat/internal/common"
	"github.com/securechat/securechat/internal/cryptox"
	"github.com/securechat/securechat/internal/keys"
	"github.com/securechat/securechat/internal/logging"
	"github.com/securechat/securechat/internal/models"
	"github.com/securechat/securechat/internal/profile"
	"github.com/securechat/securechat/internal/repositories/users"
)

const (
	// MaxFailedAttempts failed password checks inside one window lock the
	// account for LockoutWindow.
	MaxFailedAttempts = 5
	LockoutWindow     = 5 * time.Minute

	verifierSize = 32
)

// CaptchaVerifier checks (and spends) a registration challenge.
type CaptchaVerifier interface {
	Verify(ctx context.Context, id, answer string) bool
}

// Service owns account lifecycle and session state. All password checks go
// through the same path so login and password change share lockout
// accounting.
type Service struct {
	repo     users.Repository
	captcha  CaptchaVerifier
	profiles *profile.Cipher
	logger   logging.Logger

	tokenSecret []byte
	iterations  int
	now         func() time.Time
}

func NewService(repo users.Repository, captcha CaptchaVerifier, profiles *profile.Cipher, tokenSecret []byte, iterations int, logger logging.Logger) *Service {
	if iterations <= 0 {
		iterations = keys.DefaultIterations
	}
	return &Service{
		repo:        repo,
		captcha:     captcha,
		profiles:    profiles,
		logger:      logger,
		tokenSecret: tokenSecret,
		iterations:  iterations,
		now:         time.Now,
	}
}

// Register creates an account: captcha first, then keypairs, verifier and
// password envelopes. The captcha is spent even if the username turns out
// to be taken.
func (s *Service) Register(ctx context.Context, username string, password []byte, p models.Profile, captchaID, captchaAnswer string) error {
	if !s.captcha.Verify(ctx, captchaID, captchaAnswer) {
		return common.ErrCaptchaFailed
	}

	// check before the key derivation work so a taken name costs nothing;
	// the store's unique constraint still catches the concurrent race
	if _, err := s.repo.Find(ctx, username); err == nil {
		return common.ErrDuplicateUser
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}

	salt := cryptox.RandBytes(16)
	hash := cryptox.DeriveKey(password, salt, s.iterations, verifierSize)

	signing, err := keys.GenerateSigningKeypair()
	if err != nil {
		return err
	}
	exchange, err := keys.GenerateExchangeKeypair()
	if err != nil {
		return err
	}

	signingBlob, err := keys.ProtectWithIterations(keys.EncodeSigningPrivate(signing.Private), password, s.iterations)
	if err != nil {
		return err
	}
	exchangeBlob, err := keys.ProtectWithIterations(keys.EncodeExchangePrivate(exchange.Private), password, s.iterations)
	if err != nil {
		return err
	}

	enc, err := s.encryptProfile(p)
	if err != nil {
		return err
	}

	user := &models.User{
		Username:             username,
		PasswordSaltB64:      base64.StdEncoding.EncodeToString(salt),
		PasswordHashB64:      base64.StdEncoding.EncodeToString(hash),
		PasswordIterations:   s.iterations,
		SigningPublicKeyB64:  base64.StdEncoding.EncodeToString(keys.EncodeSigningPublic(signing.Public)),
		SigningKeyEnvelope:   *signingBlob,
		ExchangePublicKeyB64: base64.StdEncoding.EncodeToString(keys.EncodeExchangePublic(exchange.Public)),
		ExchangeKeyEnvelope:  *exchangeBlob,
		EncryptedEmail:       enc.Email,
		EncryptedFullName:    enc.FullName,
		EncryptedAddress:     enc.Address,
		EncryptedGender:      enc.Gender,
		CreatedAt:            s.now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}
	s.logger.Info(ctx, "user registered", "username", username)
	return nil
}

// Login verifies the password, applies lockout rules, mints a fresh session
// token (displacing any existing session) and unlocks both private keys.
func (s *Service) Login(ctx context.Context, username string, password []byte) (*Session, error) {
	user, err := s.repo.Find(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := s.checkPassword(ctx, user, password); err != nil {
		return nil, err
	}

	now := s.now()
	token, err := generateSessionToken(s.tokenSecret, username, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IssueSession(ctx, username, token); err != nil {
		return nil, err
	}

	session, err := s.unlockKeys(user, password)
	if err != nil {
		return nil, err
	}
	session.username = username
	session.token = token

	s.logger.Info(ctx, "login", "username", username)
	return session, nil
}

// IsSessionValid reports whether token is still the account's current
// session token. Pure read: a stale token observed here means another
// client logged in and displaced this session.
func (s *Service) IsSessionValid(ctx context.Context, username, token string) (bool, error) {
	current, err := s.repo.SessionToken(ctx, username)
	if err != nil {
		return false, err
	}
	return token != "" && token == current, nil
}

// Logout records the logout time, which feeds the missed-message check.
// The session token is left as is; it dies with the Session value.
func (s *Service) Logout(ctx context.Context, session *Session) error {
	return s.repo.SetLastLogout(ctx, session.Username(), s.now().UTC())
}

// ChangePassword re-verifies the old password under the same lockout rules
// as login, then re-protects both private keys under the new password and
// swaps all credential artifacts in one update.
func (s *Service) ChangePassword(ctx context.Context, username string, oldPassword, newPassword []byte) error {
	user, err := s.repo.Find(ctx, username)
	if err != nil {
		return err
	}

	if err := s.checkPassword(ctx, user, oldPassword); err != nil {
		return err
	}

	signingKey, err := keys.Unprotect(&user.SigningKeyEnvelope, oldPassword)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(signingKey)
	exchangeKey, err := keys.Unprotect(&user.ExchangeKeyEnvelope, oldPassword)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(exchangeKey)

	salt := cryptox.RandBytes(16)
	hash := cryptox.DeriveKey(newPassword, salt, s.iterations, verifierSize)

	signingBlob, err := keys.ProtectWithIterations(signingKey, newPassword, s.iterations)
	if err != nil {
		return err
	}
	exchangeBlob, err := keys.ProtectWithIterations(exchangeKey, newPassword, s.iterations)
	if err != nil {
		return err
	}

	bundle := &models.CredentialBundle{
		PasswordSaltB64:     base64.StdEncoding.EncodeToString(salt),
		PasswordHashB64:     base64.StdEncoding.EncodeToString(hash),
		PasswordIterations:  s.iterations,
		SigningKeyEnvelope:  *signingBlob,
		ExchangeKeyEnvelope: *exchangeBlob,
	}
	if err := s.repo.ReplaceCredentials(ctx, username, bundle); err != nil {
		return err
	}
	s.logger.Info(ctx, "password changed", "username", username)
	return nil
}

// checkPassword implements the shared verify-or-count path. Lockout is
// lazy: an expired window is ignored without touching the record until the
// next successful login resets it.
func (s *Service) checkPassword(ctx context.Context, user *models.User, password []byte) error {
	now := s.now()
	if user.LockoutUntil != nil && now.Before(*user.LockoutUntil) {
		remaining := int64(user.LockoutUntil.Sub(now).Seconds()) + 1
		return &common.AccountLockedError{SecondsRemaining: remaining}
	}

	salt, err := base64.StdEncoding.DecodeString(user.PasswordSaltB64)
	if err != nil {
		return common.ErrAuthenticationFailed
	}
	expected, err := base64.StdEncoding.DecodeString(user.PasswordHashB64)
	if err != nil {
		return common.ErrAuthenticationFailed
	}
	actual := cryptox.DeriveKey(password, salt, user.PasswordIterations, len(expected))
	defer common.WipeByteArray(actual)

	if !cryptox.ConstantTimeEqual(expected, actual) {
		count, err := s.repo.IncrementFailedAttempts(ctx, user.Username)
		if err != nil {
			return err
		}
		if count >= MaxFailedAttempts {
			until := now.Add(LockoutWindow)
			if err := s.repo.LockUntil(ctx, user.Username, until); err != nil {
				return err
			}
			s.logger.Warn(ctx, "account locked", "username", user.Username, "until", until)
			return &common.AccountLockedError{SecondsRemaining: int64(LockoutWindow.Seconds())}
		}
		return &common.InvalidPasswordError{AttemptsRemaining: MaxFailedAttempts - count}
	}

	return s.repo.ResetLockout(ctx, user.Username)
}

func (s *Service) unlockKeys(user *models.User, password []byte) (*Session, error) {
	signingBytes, err := keys.Unprotect(&user.SigningKeyEnvelope, password)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(signingBytes)
	exchangeBytes, err := keys.Unprotect(&user.ExchangeKeyEnvelope, password)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(exchangeBytes)

	signingPrivate, err := keys.DecodeSigningPrivate(signingBytes)
	if err != nil {
		return nil, err
	}
	exchangePrivate, err := keys.DecodeExchangePrivate(exchangeBytes)
	if err != nil {
		return nil, err
	}

	signingPublicBytes, err := base64.StdEncoding.DecodeString(user.SigningPublicKeyB64)
	if err != nil {
		return nil, err
	}
	signingPublic, err := keys.DecodeSigningPublic(signingPublicBytes)
	if err != nil {
		return nil, err
	}
	exchangePublicBytes, err := base64.StdEncoding.DecodeString(user.ExchangePublicKeyB64)
	if err != nil {
		return nil, err
	}
	exchangePublic, err := keys.DecodeExchangePublic(exchangePublicBytes)
	if err != nil {
		return nil, err
	}

	return &Session{
		signingPublic:   signingPublic,
		signingPrivate:  signingPrivate,
		exchangePublic:  exchangePublic,
		exchangePrivate: exchangePrivate,
	}, nil
}

// GetProfile returns the decrypted profile fields. A field that fails to
// decrypt (profile key rotated out from under the record) comes back empty
// rather than failing the whole read.
func (s *Service) GetProfile(ctx context.Context, username string) (*models.Profile, error) {
	user, err := s.repo.Find(ctx, username)
	if err != nil {
		return nil, err
	}
	return &models.Profile{
		Email:    s.decryptField(ctx, username, "email", user.EncryptedEmail),
		FullName: s.decryptField(ctx, username, "full_name", user.EncryptedFullName),
		Address:  s.decryptField(ctx, username, "address", user.EncryptedAddress),
		Gender:   s.decryptField(ctx, username, "gender", user.EncryptedGender),
	}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, username string, p models.Profile) error {
	enc, err := s.encryptProfile(p)
	if err != nil {
		return err
	}
	return s.repo.UpdateProfile(ctx, username, enc)
}

// UpdateAvatar stores the avatar image encrypted at rest like the other
// profile fields.
func (s *Service) UpdateAvatar(ctx context.Context, username string, avatar []byte) error {
	enc, err := s.profiles.Encrypt(base64.StdEncoding.EncodeToString(avatar))
	if err != nil {
		return err
	}
	return s.repo.UpdateAvatar(ctx, username, enc)
}

// Avatar returns the decrypted avatar bytes, or nil if none is set.
func (s *Service) Avatar(ctx context.Context, username string) ([]byte, error) {
	user, err := s.repo.Find(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.EncryptedAvatar == "" {
		return nil, nil
	}
	b64, err := s.profiles.Decrypt(user.EncryptedAvatar)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(b64)
}

func (s *Service) encryptProfile(p models.Profile) (users.EncryptedProfile, error) {
	var enc users.EncryptedProfile
	var err error
	if enc.Email, err = s.profiles.Encrypt(p.Email); err != nil {
		return enc, err
	}
	if enc.FullName, err = s.profiles.Encrypt(p.FullName); err != nil {
		return enc, err
	}
	if enc.Address, err = s.profiles.Encrypt(p.Address); err != nil {
		return enc, err
	}
	enc.Gender, err = s.profiles.Encrypt(p.Gender)
	return enc, err
}

func (s *Service) decryptField(ctx context.Context, username, field, encrypted string) string {
	v, err := s.profiles.Decrypt(encrypted)
	if err != nil {
		s.logger.Warn(ctx, "profile field unreadable", "username", username, "field", field)
		return ""
	}
	return v
}
