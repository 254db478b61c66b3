package public

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/otp"
	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

type recordingSender struct {
	to, message string
}

func (r *recordingSender) Send(_ context.Context, to, message string) error {
	r.to, r.message = to, message
	return nil
}

func newTestService(t *testing.T, handler http.Handler) (*Service, *recordingSender) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := redmine.New(redmine.Config{
		BaseURL:     srv.URL,
		AdminAPIKey: "admin",
		HTTPClient:  srv.Client(),
	})
	if err != nil {
		t.Fatalf("redmine.New: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	sender := &recordingSender{}
	otpService := otp.NewService(otp.NewMemoryStore(), sender, logger)
	return New(client, otpService, logger), sender
}

func writeIssues(w http.ResponseWriter, issues ...redmine.Issue) {
	json.NewEncoder(w).Encode(redmine.IssuePage{Issues: issues, TotalCount: len(issues)})
}

func TestIsLorryNumberValid(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Redmine-API-Key"); got != "admin" {
			t.Errorf("key = %q", got)
		}
		writeIssues(w,
			redmine.Issue{
				ID:             1,
				CreatedOn:      "2025-06-01T08:00:00Z",
				EstimatedHours: 6,
				CustomFields:   redmine.CustomFields{{ID: redmine.FieldLorryNumber, Value: "LD-4412"}},
			},
			redmine.Issue{
				ID:             2,
				CreatedOn:      "2025-05-01T08:00:00Z",
				EstimatedHours: 6,
				CustomFields:   redmine.CustomFields{{ID: redmine.FieldLorryNumber, Value: "AB-0001"}},
			},
		)
	})
	svc, _ := newTestService(t, handler)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }

	valid, err := svc.IsLorryNumberValid(context.Background(), "ld-4412")
	if err != nil {
		t.Fatalf("IsLorryNumberValid: %v", err)
	}
	if !valid {
		t.Error("permit inside its window should be valid")
	}

	valid, err = svc.IsLorryNumberValid(context.Background(), "AB-0001")
	if err != nil {
		t.Fatalf("IsLorryNumberValid: %v", err)
	}
	if valid {
		t.Error("expired permit should not be valid")
	}
}

func TestOTPRoundTrip(t *testing.T) {
	svc, sender := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	if err := svc.RequestOTP(context.Background(), "0771234567"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if sender.to != "0771234567" {
		t.Errorf("sent to %q", sender.to)
	}
	code := sender.message[len("Your OTP code is "):]
	if err := svc.VerifyOTP(context.Background(), "0771234567", code); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if err := svc.VerifyOTP(context.Background(), "0771234567", code); err != otp.ErrNotFound {
		t.Errorf("replay err = %v", err)
	}
}

func TestCreateComplaintUsesAdminKey(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Redmine-API-Key"); got != "admin" {
			t.Errorf("key = %q", got)
		}
		var payload struct {
			Issue redmine.NewIssue `json:"issue"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		byID := map[int]string{}
		for _, f := range payload.Issue.CustomFields {
			byID[f.ID] = f.Value
		}
		if byID[redmine.FieldComplainantRole] != "Public" || byID[redmine.FieldMobileNumber] != "0771234567" {
			t.Errorf("fields = %v", byID)
		}
		if payload.Issue.AssignedToID != 0 {
			t.Errorf("public complaints are unassigned, got %d", payload.Issue.AssignedToID)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {ID: 112}})
	})
	svc, _ := newTestService(t, handler)

	id, err := svc.CreateComplaint(context.Background(), "0771234567", "LD-4412")
	if err != nil {
		t.Fatalf("CreateComplaint: %v", err)
	}
	if id != 112 {
		t.Errorf("id = %d, want 112", id)
	}
}
