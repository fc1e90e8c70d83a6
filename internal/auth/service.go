package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/redmonkez12/account-service/internal/logging"
	"github.com/redmonkez12/account-service/internal/user"
)

var (
	ErrInvalidLogin        = errors.New("invalid email or password")
	ErrNotVerified         = errors.New("email not verified, please check your inbox")
	ErrInvalidToken        = errors.New("invalid token")
	ErrAccountNotFound     = errors.New("account not found")
	ErrNotificationFailure = errors.New("failed to send email")

	ErrNameRequired       = errors.New("name is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
)

// TokenPair is the response body for operations that mint tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service orchestrates the session lifecycle: signup, login, verification
// gating, token refresh, revocation, and credential changes. It holds no
// mutable state; everything lives in the store and the ledger.
type Service struct {
	users      UserStore
	ledger     Ledger
	codec      *Codec
	mailer     Mailer
	logger     *logging.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(
	users UserStore,
	ledger Ledger,
	codec *Codec,
	mailer Mailer,
	logger *logging.Logger,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *Service {
	return &Service{
		users:      users,
		ledger:     ledger,
		codec:      codec,
		mailer:     mailer,
		logger:     logger,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Signup creates an unverified account and emails a verification token.
// The token travels out-of-band only; the response carries no credentials,
// so the account is unusable until its address is confirmed reachable.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*user.User, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Insert(ctx, &user.User{
		Email:        email,
		PasswordHash: passwordHash,
		Verified:     false,
		RegisteredAt: time.Now(),
		Name:         name,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.sendVerification(ctx, newUser, TemplateVerifyAfterSignup); err != nil {
		return nil, err
	}

	return newUser, nil
}

// Login authenticates credentials and returns a fresh token pair. Unverified
// accounts get a new verification email and fail with ErrNotVerified.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidLogin
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// Same error shape as a wrong password
			return nil, ErrInvalidLogin
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existing.PasswordHash, password) {
		return nil, ErrInvalidLogin
	}

	if !existing.Verified {
		if err := s.sendVerification(ctx, existing, TemplateVerifyAfterLogin); err != nil {
			return nil, err
		}
		return nil, ErrNotVerified
	}

	return s.issuePair(existing)
}

// VerifyEmail flips the subject to verified. The guard has already checked
// that the presented token is a live refresh token for this user. Returns an
// access token as confirmation.
func (s *Service) VerifyEmail(ctx context.Context, subject *user.User) (*TokenPair, error) {
	subject.Verified = true
	if err := s.users.Update(ctx, subject); err != nil {
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}

	s.logger.Info("email verified", "user_id", subject.ID)

	return s.issueAccess(subject)
}

// Refresh mints a new access token from a refresh token. The refresh token is
// not rotated. Unverified subjects are rejected; a refresh token minted for
// verification only becomes a session once VerifyEmail has run.
func (s *Service) Refresh(ctx context.Context, subject *user.User) (*TokenPair, error) {
	if !subject.Verified {
		return nil, ErrNotVerified
	}
	return s.issueAccess(subject)
}

// Logout records the presented token's id in the revocation ledger. Logging
// out an already-revoked token still succeeds.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if err := s.ledger.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Delete removes the account entirely. Dropping the password hash makes every
// outstanding token for this subject unverifiable, so no mass revocation is
// needed.
func (s *Service) Delete(ctx context.Context, subject *user.User) error {
	if err := s.users.Delete(ctx, subject.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.Info("account deleted", "user_id", subject.ID)
	return nil
}

// ChangeEmail updates the address after password re-confirmation. The account
// drops back to unverified and a fresh verification email goes to the new
// address.
func (s *Service) ChangeEmail(ctx context.Context, subject *user.User, newEmail, password string) error {
	if newEmail == "" {
		return ErrEmailRequired
	}
	if _, err := mail.ParseAddress(newEmail); err != nil {
		return ErrInvalidEmailFormat
	}
	if !VerifyPassword(subject.PasswordHash, password) {
		return ErrInvalidLogin
	}

	// Explicit duplicate check; the store's unique index is the backstop
	if other, err := s.users.FindByEmail(ctx, newEmail); err == nil && other.ID != subject.ID {
		return user.ErrDuplicateEmail
	} else if err != nil && !errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	subject.Email = newEmail
	subject.Verified = false
	if err := s.users.Update(ctx, subject); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return user.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return s.sendVerification(ctx, subject, TemplateVerifyAfterChange)
}

// ChangePassword sets a new password hash. With a normal access token the old
// password must be re-confirmed; a token carrying the one-shot reset claim
// skips that check. The rewritten hash changes the signing key, which kills
// every other outstanding token for this subject, the reset token included.
func (s *Service) ChangePassword(ctx context.Context, subject *user.User, claims *Claims, oldPassword, newPassword string) error {
	if !claims.Reset {
		if !VerifyPassword(subject.PasswordHash, oldPassword) {
			return ErrInvalidLogin
		}
	}

	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < 8 {
		return ErrPasswordTooShort
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	subject.PasswordHash = passwordHash
	if err := s.users.Update(ctx, subject); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", "user_id", subject.ID)
	return nil
}

// RequestPasswordReset emails a reset token to a verified account. An
// unverified account is treated as an abandoned signup: it is deleted and the
// request fails with ErrNotVerified.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !existing.Verified {
		if err := s.users.Delete(ctx, existing.ID); err != nil {
			return fmt.Errorf("failed to delete unverified user: %w", err)
		}
		s.logger.Info("deleted unverified account on reset request", "user_id", existing.ID)
		return ErrNotVerified
	}

	token, err := s.codec.IssueReset(existing, s.accessTTL)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	if err := s.mailer.Send(ctx, existing.Email, TemplateResetPassword, MailParams{
		Name:  existing.Name,
		Token: token,
	}); err != nil {
		s.logger.Error("failed to send password reset email", "user_id", existing.ID, "error", err.Error())
		return ErrNotificationFailure
	}

	return nil
}

// sendVerification issues a refresh token and mails it with the given
// template. A failed send aborts the whole operation: without the email the
// user has no other way to obtain the token.
func (s *Service) sendVerification(ctx context.Context, u *user.User, template Template) error {
	token, err := s.codec.Issue(u, KindRefresh, s.refreshTTL)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	if err := s.mailer.Send(ctx, u.Email, template, MailParams{
		Name:  u.Name,
		Token: token,
	}); err != nil {
		s.logger.Error("failed to send verification email", "user_id", u.ID, "template", string(template), "error", err.Error())
		return ErrNotificationFailure
	}

	return nil
}

func (s *Service) issueAccess(u *user.User) (*TokenPair, error) {
	access, err := s.codec.Issue(u, KindAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *Service) issuePair(u *user.User) (*TokenPair, error) {
	pair, err := s.issueAccess(u)
	if err != nil {
		return nil, err
	}

	refresh, err := s.codec.Issue(u, KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	pair.RefreshToken = refresh
	return pair, nil
}
