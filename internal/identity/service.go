package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Service is the identity-provider surface consumed by the verification flows.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Exists reports whether an account is registered for the email.
func (s *Service) Exists(ctx context.Context, email string) (bool, error) {
	_, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkEmailVerified records that the email passed OTP verification.
func (s *Service) MarkEmailVerified(ctx context.Context, email string) error {
	return s.repo.MarkEmailVerified(ctx, email)
}

// SetPassword hashes the plaintext with bcrypt and stores it.
func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, email, hash)
}
