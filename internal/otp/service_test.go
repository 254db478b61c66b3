package otp

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type captureSender struct {
	phone   string
	message string
	err     error
}

func (s *captureSender) Send(_ context.Context, phone, message string) error {
	s.phone = phone
	s.message = message
	return s.err
}

func newTestService(sender *captureSender) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(store, sender, logger), store
}

func TestIssueAndVerify(t *testing.T) {
	sender := &captureSender{}
	svc, store := newTestService(sender)
	ctx := context.Background()

	if err := svc.Issue(ctx, "0712345678"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if sender.phone != "0712345678" {
		t.Errorf("sent to %q", sender.phone)
	}

	code, err := store.Get(ctx, "0712345678")
	if err != nil {
		t.Fatalf("stored code: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code %q is not 6 digits", code)
	}
	if want := "Your OTP code is " + code; sender.message != want {
		t.Errorf("message = %q, want %q", sender.message, want)
	}

	if err := svc.Verify(ctx, "0712345678", code); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	// The code is consumed by a successful verification.
	if err := svc.Verify(ctx, "0712345678", code); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Verify = %v, want ErrNotFound", err)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	sender := &captureSender{}
	svc, store := newTestService(sender)
	ctx := context.Background()

	if err := store.Set(ctx, "0712345678", "123456", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := svc.Verify(ctx, "0712345678", "000000"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Verify = %v, want ErrInvalid", err)
	}
	// A failed attempt does not consume the code.
	if err := svc.Verify(ctx, "0712345678", "123456"); err != nil {
		t.Fatalf("Verify = %v", err)
	}
}

func TestVerifyUnknownPhone(t *testing.T) {
	svc, _ := newTestService(&captureSender{})
	err := svc.Verify(context.Background(), "0700000000", "123456")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Verify = %v, want ErrNotFound", err)
	}
	if err.Error() != "OTP expired or not found" {
		t.Fatalf("error text = %q", err.Error())
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Set(ctx, "071", "123456", 10*time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "071"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	now = now.Add(11 * time.Minute)
	if _, err := store.Get(ctx, "071"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after expiry = %v, want ErrNotFound", err)
	}
}
