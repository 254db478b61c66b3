package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/metrics"
)

// ErrInvalid is returned when the submitted code does not match the stored
// one.
var ErrInvalid = errors.New("Invalid OTP")

const codeTTL = 10 * time.Minute

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// Service generates, delivers and verifies one-time codes.
type Service struct {
	store  Store
	sender Sender
	logger *logrus.Logger
}

// NewService wires a code store with an SMS sender.
func NewService(store Store, sender Sender, logger *logrus.Logger) *Service {
	return &Service{store: store, sender: sender, logger: logger}
}

// generateCode returns a random 6-digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue generates a code, stores it for 10 minutes and texts it to phone.
// Re-issuing replaces any code already stored for the number.
func (s *Service) Issue(ctx context.Context, phone string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, phone, code, codeTTL); err != nil {
		return err
	}
	if err := s.sender.Send(ctx, phone, "Your OTP code is "+code); err != nil {
		return fmt.Errorf("otp: send code: %w", err)
	}
	metrics.RecordOTPIssued()
	s.logger.WithField("phone", phone).Info("verification code sent")
	return nil
}

// Verify checks the submitted code and consumes it on success. A verified
// code cannot be used a second time.
func (s *Service) Verify(ctx context.Context, phone, code string) error {
	stored, err := s.store.Get(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordOTPVerification("expired")
		}
		return err
	}
	if stored != code {
		metrics.RecordOTPVerification("invalid")
		return ErrInvalid
	}
	if err := s.store.Delete(ctx, phone); err != nil {
		return err
	}
	metrics.RecordOTPVerification("verified")
	return nil
}
