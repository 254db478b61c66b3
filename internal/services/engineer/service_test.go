package engineer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
)

func newTestService(t *testing.T, handler http.Handler) *Service {
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
	return New(client, logger)
}

func writeIssues(w http.ResponseWriter, issues ...redmine.Issue) {
	json.NewEncoder(w).Encode(redmine.IssuePage{Issues: issues, TotalCount: len(issues)})
}

func decodeUpdate(t *testing.T, r *http.Request) redmine.IssueUpdate {
	t.Helper()
	var payload struct {
		Issue redmine.IssueUpdate `json:"issue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	return payload.Issue
}

func TestApproveClosesSiteVisit(t *testing.T) {
	var order []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/issues/40.json":
			update := decodeUpdate(t, r)
			if update.StatusID != redmine.StatusApproved {
				t.Errorf("license status = %d", update.StatusID)
			}
			byID := map[int]string{}
			for _, f := range update.CustomFields {
				byID[f.ID] = f.Value
			}
			if byID[redmine.FieldCapacity] != "100" || byID[redmine.FieldRoyalty] != "5000" {
				t.Errorf("fields = %v", byID)
			}
			order = append(order, "license")
			w.WriteHeader(http.StatusNoContent)
		case "/issues/88.json":
			update := decodeUpdate(t, r)
			if update.StatusID != redmine.StatusClosed {
				t.Errorf("visit status = %d", update.StatusID)
			}
			order = append(order, "visit")
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	svc := newTestService(t, handler)

	err := svc.Approve(context.Background(), "key", 40, 88, ApproveRequest{
		Capacity: "100", Royalty: "5000", Used: "0", Remaining: "100",
	})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if len(order) != 2 || order[0] != "license" || order[1] != "visit" {
		t.Errorf("order = %v", order)
	}
}

func TestHoldFindsAndClosesSiteVisit(t *testing.T) {
	var closedVisit bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/issues/40.json":
			update := decodeUpdate(t, r)
			if update.StatusID != redmine.StatusHold {
				t.Errorf("status = %d", update.StatusID)
			}
			if len(update.CustomFields) != 1 || update.CustomFields[0].ID != redmine.FieldHoldReason {
				t.Errorf("fields = %+v", update.CustomFields)
			}
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && r.URL.Path == "/issues.json":
			if got := r.URL.Query().Get("cf_101"); got != "ML Request LLL/100/40" {
				t.Errorf("cf_101 = %q", got)
			}
			if got := r.URL.Query().Get("status_id"); got != "*" {
				t.Errorf("status_id = %q", got)
			}
			writeIssues(w, redmine.Issue{ID: 201})
		case r.Method == http.MethodPut && r.URL.Path == "/issues/201.json":
			closedVisit = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	svc := newTestService(t, handler)

	if err := svc.Hold(context.Background(), "key", 40, "Survey plan incomplete"); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if !closedVisit {
		t.Error("site visit was not closed")
	}
}

func TestHoldWithoutSiteVisit(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeIssues(w)
	})
	svc := newTestService(t, handler)

	err := svc.Hold(context.Background(), "key", 40, "reason")
	if err == nil || !strings.Contains(err.Error(), "no site visit found") {
		t.Fatalf("err = %v", err)
	}
}

func TestScheduleVisitSurvivesStatusUpdateFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/issues.json":
			var payload struct {
				Issue redmine.NewIssue `json:"issue"`
			}
			json.NewDecoder(r.Body).Decode(&payload)
			if payload.Issue.TrackerID != redmine.TrackerSiteVisit || payload.Issue.StatusID != redmine.StatusScheduled {
				t.Errorf("payload = %+v", payload.Issue)
			}
			if payload.Issue.Subject != "Site Visit for Mining License LLL/100/40" {
				t.Errorf("subject = %q", payload.Issue.Subject)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {ID: 300}})
		case r.Method == http.MethodPut && r.URL.Path == "/issues/40.json":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	svc := newTestService(t, handler)

	id, err := svc.ScheduleVisit(context.Background(), "key", 7, "2025-05-01", "LLL/100/40", "6.9271,79.8612")
	if err != nil {
		t.Fatalf("ScheduleVisit: %v", err)
	}
	if id != 300 {
		t.Errorf("id = %d, want 300", id)
	}
}

func TestScheduleVisitRejectsBadNumber(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))

	_, err := svc.ScheduleVisit(context.Background(), "key", 7, "2025-05-01", "garbage", "")
	if err == nil || !strings.Contains(err.Error(), "invalid mining license number format") {
		t.Fatalf("err = %v", err)
	}
}

func TestLicenseStatusCountsZeroFilled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeIssues(w,
			redmine.Issue{ID: 1, Status: redmine.Ref{ID: redmine.StatusApproved}},
			redmine.Issue{ID: 2, Status: redmine.Ref{ID: redmine.StatusApproved}},
			redmine.Issue{ID: 3, Status: redmine.Ref{ID: redmine.StatusValid}},
		)
	})
	svc := newTestService(t, handler)

	counts, err := svc.LicenseStatusCounts(context.Background(), "key")
	if err != nil {
		t.Fatalf("LicenseStatusCounts: %v", err)
	}
	if len(counts) != 4 {
		t.Fatalf("counts = %v", counts)
	}
	if counts["ME Approved"] != 2 || counts["Rejected"] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRejectedLicensesFiltersClosedStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeIssues(w,
			redmine.Issue{
				ID:     1,
				Status: redmine.Ref{ID: redmine.StatusRejected, Name: "Rejected"},
				CustomFields: redmine.CustomFields{
					{ID: redmine.FieldLicenseNumber, Name: redmine.NameLicenseNumber, Value: "LLL/100/1"},
				},
			},
			redmine.Issue{ID: 2, Status: redmine.Ref{ID: redmine.StatusValid, Name: "Valid"}},
		)
	})
	svc := newTestService(t, handler)

	rejected, err := svc.RejectedLicenses(context.Background(), "key")
	if err != nil {
		t.Fatalf("RejectedLicenses: %v", err)
	}
	if len(rejected) != 1 || rejected[0].MiningNumber != "LLL/100/1" {
		t.Errorf("rejected = %+v", rejected)
	}
}

func TestSingleLicenseValidatesTracker(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {
			ID:      50,
			Project: redmine.Ref{ID: redmine.ProjectID},
			Tracker: redmine.Ref{ID: redmine.TrackerComplaint},
		}})
	})
	svc := newTestService(t, handler)

	_, err := svc.SingleLicense(context.Background(), "key", 50)
	if err != ErrNotMiningLicense {
		t.Fatalf("err = %v", err)
	}
}
