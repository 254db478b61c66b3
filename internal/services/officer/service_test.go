package officer

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

func TestMLOwnersJoinsRolesUsersAndCounts(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/memberships.json"):
			if got := r.Header.Get("X-Redmine-API-Key"); got != "officer-key" {
				t.Errorf("memberships key = %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"memberships": []map[string]any{
					{"user": map[string]any{"id": 9, "name": "Saman Perera"}, "roles": []map[string]any{{"id": 4, "name": "MLOwner"}}},
					{"user": map[string]any{"id": 10, "name": "Nimal Silva"}, "roles": []map[string]any{{"id": 4, "name": "MLOwner"}}},
					{"user": map[string]any{"id": 11, "name": "Officer One"}, "roles": []map[string]any{{"id": 5, "name": "GSMBOfficer"}}},
				},
				"total_count": 3,
			})
		case strings.Contains(r.URL.Path, "/users.json"):
			if got := r.Header.Get("X-Redmine-API-Key"); got != "admin" {
				t.Errorf("users key = %q", got)
			}
			if got := r.URL.Query().Get("status"); got != "1" {
				t.Errorf("status = %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"users": []redmine.User{
					{ID: 9, Firstname: "Saman", Lastname: "Perera", Mail: "saman@example.com",
						CustomFields: redmine.CustomFields{
							{Name: redmine.NameNIC, Value: "902541337V"},
							{Name: redmine.NameMobileNumber, Value: "0771234567"},
						}},
					{ID: 10, Firstname: "Nimal", Lastname: "Silva"},
					{ID: 11, Firstname: "Officer", Lastname: "One"},
				},
				"total_count": 3,
			})
		default:
			writeIssues(w,
				redmine.Issue{ID: 1, AssignedTo: &redmine.Ref{ID: 9, Name: "Saman Perera"}},
				redmine.Issue{ID: 2, AssignedTo: &redmine.Ref{ID: 9, Name: "Saman Perera"}},
				redmine.Issue{ID: 3},
			)
		}
	})
	svc := newTestService(t, handler)

	owners, err := svc.MLOwners(context.Background(), "officer-key")
	if err != nil {
		t.Fatalf("MLOwners: %v", err)
	}
	if len(owners) != 2 {
		t.Fatalf("owners = %d, want 2", len(owners))
	}
	if owners[0].OwnerName != "Saman Perera" || owners[0].TotalLicenses != 2 {
		t.Errorf("owner[0] = %+v", owners[0])
	}
	if owners[0].NIC != "902541337V" || owners[0].PhoneNumber != "0771234567" {
		t.Errorf("owner[0] contact = %+v", owners[0])
	}
	if owners[1].OwnerName != "Nimal Silva" || owners[1].TotalLicenses != 0 {
		t.Errorf("owner[1] = %+v", owners[1])
	}
}

func TestLicenseCountsUnassignedBucket(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeIssues(w,
			redmine.Issue{ID: 1, AssignedTo: &redmine.Ref{ID: 9, Name: "Saman Perera"}},
			redmine.Issue{ID: 2},
		)
	})
	svc := newTestService(t, handler)

	counts, err := svc.LicenseCounts(context.Background(), "key")
	if err != nil {
		t.Fatalf("LicenseCounts: %v", err)
	}
	if counts["Saman Perera"] != 1 || counts["Unassigned"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestComplaintsFormatsTimestamp(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tracker_id"); got != "6" {
			t.Errorf("tracker_id = %q", got)
		}
		writeIssues(w,
			redmine.Issue{
				ID:        1,
				CreatedOn: "2025-03-14T09:30:00Z",
				CustomFields: redmine.CustomFields{
					{Name: redmine.NameLorryNumber, Value: "LD-4412"},
					{Name: redmine.NameMobileNumber, Value: "0712223344"},
				},
			},
			redmine.Issue{ID: 2, CreatedOn: "garbage"},
		)
	})
	svc := newTestService(t, handler)

	complaints, err := svc.Complaints(context.Background(), "key")
	if err != nil {
		t.Fatalf("Complaints: %v", err)
	}
	if complaints[0].ComplaintDate != "2025-03-14 09:30:00" {
		t.Errorf("date = %q", complaints[0].ComplaintDate)
	}
	if complaints[0].LorryNumber != "LD-4412" {
		t.Errorf("lorry = %q", complaints[0].LorryNumber)
	}
	if complaints[1].ComplaintDate != "garbage" {
		t.Errorf("unparsable date = %q", complaints[1].ComplaintDate)
	}
}

func TestUploadLicenseRelabels(t *testing.T) {
	var sawCreate, sawRelabel bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/issues.json":
			sawCreate = true
			var payload struct {
				Issue redmine.NewIssue `json:"issue"`
			}
			json.NewDecoder(r.Body).Decode(&payload)
			if payload.Issue.TrackerID != redmine.TrackerMiningLicense || payload.Issue.StatusID != redmine.StatusValid {
				t.Errorf("create payload = %+v", payload.Issue)
			}
			if payload.Issue.Description != "Mining license submitted by GSMB Officer" {
				t.Errorf("description = %q", payload.Issue.Description)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {ID: 77}})
		case r.Method == http.MethodPut && r.URL.Path == "/issues/77.json":
			sawRelabel = true
			var payload struct {
				Issue redmine.IssueUpdate `json:"issue"`
			}
			json.NewDecoder(r.Body).Decode(&payload)
			if len(payload.Issue.CustomFields) != 1 || payload.Issue.CustomFields[0].Value != "LLL/100/77" {
				t.Errorf("relabel payload = %+v", payload.Issue)
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	svc := newTestService(t, handler)

	id, err := svc.UploadLicense(context.Background(), "key", UploadLicenseRequest{
		Subject: "ML for Saman", StartDate: "2025-01-01", DueDate: "2026-01-01", AssigneeID: 9,
	})
	if err != nil {
		t.Fatalf("UploadLicense: %v", err)
	}
	if id != 77 {
		t.Errorf("id = %d, want 77", id)
	}
	if !sawCreate || !sawRelabel {
		t.Errorf("create=%v relabel=%v", sawCreate, sawRelabel)
	}
}

func TestUploadLicenseRelabelFailureReportsIssueID(t *testing.T) {
	var methods []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/issues.json":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {ID: 77}})
		case r.Method == http.MethodPut && r.URL.Path == "/issues/77.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	svc := newTestService(t, handler)

	_, err := svc.UploadLicense(context.Background(), "key", UploadLicenseRequest{
		Subject: "ML for Saman", StartDate: "2025-01-01", DueDate: "2026-01-01", AssigneeID: 9,
	})
	if err == nil {
		t.Fatal("expected error when the relabel update fails")
	}
	if !strings.Contains(err.Error(), "77") {
		t.Errorf("error %q does not name the created issue", err)
	}
	// The created issue stays behind for manual repair; no rollback call.
	for _, m := range methods {
		if m == http.MethodDelete {
			t.Errorf("unexpected rollback request, methods = %v", methods)
		}
	}
}

func TestCreateAppointment(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/issues.json" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload struct {
			Issue redmine.NewIssue `json:"issue"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.Issue.TrackerID != redmine.TrackerMeeting || payload.Issue.StatusID != redmine.StatusMeetingSet {
			t.Errorf("payload = %+v", payload.Issue)
		}
		if payload.Issue.AssignedToID != 9 || payload.Issue.AuthorID != 4 {
			t.Errorf("assignment = %+v", payload.Issue)
		}
		if len(payload.Issue.CustomFields) != 1 || payload.Issue.CustomFields[0].ID != redmine.FieldMeetingLocation {
			t.Errorf("fields = %+v", payload.Issue.CustomFields)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {ID: 301}})
	})
	svc := newTestService(t, handler)

	id, err := svc.CreateAppointment(context.Background(), "key", 4, CreateAppointmentRequest{
		AssignedToID:    9,
		MeetingLocation: "GSMB head office, Colombo",
		StartDate:       "2025-04-01",
		Description:     "License document review",
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if id != 301 {
		t.Errorf("id = %d, want 301", id)
	}
}

func TestLicenseRequestsExpandsAssignee(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/users/"):
			json.NewEncoder(w).Encode(map[string]redmine.User{"user": {
				ID: 9, Firstname: "Saman", Lastname: "Perera", Mail: "saman@example.com",
			}})
		case r.URL.Path == "/issues.json":
			writeIssues(w,
				redmine.Issue{
					ID:         5,
					Subject:    "ML Request",
					Status:     redmine.Ref{Name: "Pending ME Approval"},
					AssignedTo: &redmine.Ref{ID: 9, Name: "Saman Perera"},
					CustomFields: redmine.CustomFields{
						{Name: redmine.NameVillageName, Value: "Meetiyagoda"},
					},
				},
				redmine.Issue{ID: 6, Subject: "ML Request"},
			)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	svc := newTestService(t, handler)

	rows, err := svc.LicenseRequests(context.Background(), "key")
	if err != nil {
		t.Fatalf("LicenseRequests: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].AssignedToDetails == nil || rows[0].AssignedToDetails.Email != "saman@example.com" {
		t.Errorf("details = %+v", rows[0].AssignedToDetails)
	}
	if rows[0].VillageName != "Meetiyagoda" {
		t.Errorf("village = %q", rows[0].VillageName)
	}
	if rows[1].AssignedToDetails != nil {
		t.Errorf("unassigned row details = %+v", rows[1].AssignedToDetails)
	}
}
