package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/roamstay/roamstay/internal/credential"
	"github.com/roamstay/roamstay/internal/identity"
	"github.com/roamstay/roamstay/internal/mailer"
)

var (
	// ErrInvalidEmail rejects a malformed address before any store is touched.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrWeakPassword rejects a replacement password that is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

// Config carries the tunable TTLs and link base for the verification flows.
type Config struct {
	OTPTTL        time.Duration
	ResetTokenTTL time.Duration
	ResetLinkBase string
}

// Service implements the send -> verify -> consume protocol on top of the
// credential store, the mail sender, and the identity provider.
type Service struct {
	store    credential.Store
	mail     mailer.Mailer
	accounts *identity.Service
	cfg      Config
	logger   *slog.Logger
}

// NewService wires the verification flows.
func NewService(store credential.Store, mail mailer.Mailer, accounts *identity.Service, cfg Config, logger *slog.Logger) *Service {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	return &Service{store: store, mail: mail, accounts: accounts, cfg: cfg, logger: logger}
}

// NormalizeEmail lowercases and trims an address, validating its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SendOTP issues a fresh one-time code for the flow and emails it. Issuing
// replaces any outstanding code for the same (email, purpose) pair. A mail
// send failure is reported as issuance failure; the already-stored code is
// left to expire unused since its value was never delivered.
func (s *Service) SendOTP(ctx context.Context, email string, purpose credential.Purpose) error {
	subject, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if !purpose.Valid() || purpose == credential.PurposePasswordReset {
		return credential.ErrInvalidPurpose
	}

	code, err := credential.GenerateOTP()
	if err != nil {
		return err
	}
	if err := s.store.Issue(ctx, subject, purpose, code, s.cfg.OTPTTL); err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}

	body := fmt.Sprintf(`<h3>Your Roamstay verification code</h3>
<p>Enter this code to continue: <strong>%s</strong></p>
<p>The code expires in %d minutes. If you did not request it, ignore this email.</p>`,
		code, int(s.cfg.OTPTTL.Minutes()))

	if err := s.mail.Send(ctx, subject, "Your verification code", body); err != nil {
		if s.logger != nil {
			s.logger.Warn("otp mail send failed", "email", subject, "purpose", purpose, "error", err)
		}
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

// VerifyOTP checks and consumes the code. On success for signup and
// change-email flows the account's email is marked verified. All failure
// modes collapse into credential.ErrInvalidOrExpired.
func (s *Service) VerifyOTP(ctx context.Context, email string, purpose credential.Purpose, code string) error {
	subject, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if err := s.store.Verify(ctx, subject, purpose, code); err != nil {
		return err
	}

	if purpose == credential.PurposeSignup || purpose == credential.PurposeChangeEmail {
		if err := s.accounts.MarkEmailVerified(ctx, subject); err != nil && s.logger != nil {
			// Verification itself succeeded; the flag update is retried by the
			// caller's flow, so log rather than fail the verify.
			s.logger.Warn("mark email verified failed", "email", subject, "error", err)
		}
	}
	return nil
}

// SendPasswordReset issues a reset token and mails a link carrying it. To
// avoid leaking which addresses have accounts, an unknown email returns nil
// without sending anything.
func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	subject, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	exists, err := s.accounts.Exists(ctx, subject)
	if err != nil {
		return fmt.Errorf("account lookup: %w", err)
	}
	if !exists {
		if s.logger != nil {
			s.logger.Info("password reset requested for unknown email")
		}
		return nil
	}

	token, err := credential.GenerateResetToken()
	if err != nil {
		return err
	}
	if err := s.store.Issue(ctx, subject, credential.PurposePasswordReset, token, s.cfg.ResetTokenTTL); err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	link := strings.TrimSuffix(s.cfg.ResetLinkBase, "/") + "/" + token
	body := fmt.Sprintf(`<h3>Password reset requested</h3>
<p>Follow this link to choose a new password: <a href="%s">%s</a></p>
<p>The link expires in %d minutes. If you did not request this, ignore this email.</p>`,
		link, link, int(s.cfg.ResetTokenTTL.Minutes()))

	if err := s.mail.Send(ctx, subject, "Reset your password", body); err != nil {
		if s.logger != nil {
			s.logger.Warn("reset mail send failed", "email", subject, "error", err)
		}
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// CheckResetToken reports whether a reset link is still usable, without
// consuming it or extending its expiry.
func (s *Service) CheckResetToken(ctx context.Context, token string) (string, error) {
	return s.store.LookupToken(ctx, token)
}

// ResetPassword consumes the token and stores the new password. The token is
// removed once its value has been applied, so the link dies immediately
// rather than at expiry.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	// Validate the password before consuming the token, so a rejected
	// password does not burn a still-valid link.
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	subject, err := s.store.LookupToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.store.Verify(ctx, subject, credential.PurposePasswordReset, token); err != nil {
		return err
	}
	if err := s.accounts.SetPassword(ctx, subject, newPassword); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if err := s.store.RemoveToken(ctx, token); err != nil && s.logger != nil {
		s.logger.Warn("remove consumed reset token failed", "error", err)
	}
	return nil
}
