package mlowner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
	"github.com/mmpro-lk/gsmb-backend/internal/travel"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, *httptest.Server) {
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
	estimator, err := travel.New(travel.Config{
		ORSAPIKey:     "ors",
		NominatimURL:  srv.URL,
		DirectionsURL: srv.URL + "/directions",
		HTTPClient:    srv.Client(),
	})
	if err != nil {
		t.Fatalf("travel.New: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(client, estimator, logger), srv
}

func writeIssues(w http.ResponseWriter, issues ...redmine.Issue) {
	json.NewEncoder(w).Encode(redmine.IssuePage{Issues: issues, TotalCount: len(issues)})
}

func TestLicensesMarksExpired(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tracker_id") != "4" || r.URL.Query().Get("status_id") != "7" {
			t.Errorf("query = %v", r.URL.Query())
		}
		writeIssues(w,
			redmine.Issue{
				ID:         1,
				Status:     redmine.Ref{ID: redmine.StatusValid, Name: "Valid"},
				AssignedTo: &redmine.Ref{ID: 9, Name: "Saman Perera"},
				DueDate:    "2020-01-01",
				CustomFields: redmine.CustomFields{
					{ID: redmine.FieldLicenseNumber, Name: redmine.NameLicenseNumber, Value: "LLL/100/1"},
					{Name: redmine.NameRemaining, Value: "12"},
				},
			},
			redmine.Issue{
				ID:         2,
				Status:     redmine.Ref{ID: redmine.StatusValid, Name: "Valid"},
				AssignedTo: &redmine.Ref{ID: 9, Name: "Saman Perera"},
				DueDate:    "2999-01-01",
				CustomFields: redmine.CustomFields{
					{ID: redmine.FieldLicenseNumber, Name: redmine.NameLicenseNumber, Value: "LLL/100/2"},
					{Name: redmine.NameRemaining, Value: "not-a-number"},
				},
			},
		)
	})
	svc, _ := newTestService(t, handler)

	licenses, err := svc.Licenses(context.Background(), "key", 9)
	if err != nil {
		t.Fatalf("Licenses: %v", err)
	}
	if len(licenses) != 2 {
		t.Fatalf("got %d licenses", len(licenses))
	}
	if licenses[0].Status != "Expired" {
		t.Errorf("past-due license status = %q", licenses[0].Status)
	}
	if licenses[1].Status != "Valid" {
		t.Errorf("current license status = %q", licenses[1].Status)
	}
	if licenses[1].RemainingCubes != 0 {
		t.Errorf("malformed Remaining coerced to %d, want 0", licenses[1].RemainingCubes)
	}
	if licenses[0].OwnerName != "Saman Perera" {
		t.Errorf("owner = %q", licenses[0].OwnerName)
	}
}

func TestHomeLicensesFiltersUnusable(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeIssues(w,
			redmine.Issue{ID: 1, DueDate: "2999-01-01", CustomFields: redmine.CustomFields{{Name: redmine.NameRemaining, Value: "0"}}},
			redmine.Issue{ID: 2, DueDate: "2020-01-01", CustomFields: redmine.CustomFields{{Name: redmine.NameRemaining, Value: "7"}}},
			redmine.Issue{ID: 3, DueDate: "2999-01-01", CustomFields: redmine.CustomFields{{Name: redmine.NameRemaining, Value: "7"}}},
		)
	})
	svc, _ := newTestService(t, handler)

	licenses, err := svc.HomeLicenses(context.Background(), "key", 9)
	if err != nil {
		t.Fatalf("HomeLicenses: %v", err)
	}
	if len(licenses) != 1 || licenses[0].IssueID != 3 {
		t.Fatalf("licenses = %+v, want only issue 3", licenses)
	}
}

func tplTestHandler(t *testing.T, royalty, remaining string, distanceKM float64) (http.Handler, *[]string) {
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("/issues/42.json", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {
				ID: 42,
				CustomFields: redmine.CustomFields{
					{ID: redmine.FieldUsed, Name: redmine.NameUsed, Value: "10"},
					{ID: redmine.FieldRemaining, Name: redmine.NameRemaining, Value: remaining},
					{ID: redmine.FieldRoyalty, Name: redmine.NameRoyalty, Value: royalty},
				},
			}})
		case http.MethodPut:
			var body struct {
				Issue redmine.IssueUpdate `json:"issue"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			got := map[int]string{}
			for _, f := range body.Issue.CustomFields {
				got[f.ID] = f.Value
			}
			if got[redmine.FieldUsed] != "14" || got[redmine.FieldRemaining] != "16" || got[redmine.FieldRoyalty] != "1000" {
				t.Errorf("license update = %v", got)
			}
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{{"lat": "6.9", "lon": "79.8"}})
	})
	mux.HandleFunc("/directions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"routes": []map[string]any{{"summary": map[string]float64{"distance": distanceKM}}},
		})
	})
	mux.HandleFunc("/issues.json", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		var body struct {
			Issue redmine.NewIssue `json:"issue"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Issue.TrackerID != redmine.TrackerTransportLicense || body.Issue.StatusID != redmine.StatusActive {
			t.Errorf("TPL issue = %+v", body.Issue)
		}
		if body.Issue.EstimatedHours != 6 {
			t.Errorf("estimated hours = %v, want 6", body.Issue.EstimatedHours)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {ID: 88, CreatedOn: "2026-01-02T10:00:00Z"}})
	})
	return mux, &calls
}

func TestCreateTPL(t *testing.T) {
	handler, calls := tplTestHandler(t, "3000", "20", 120)
	svc, _ := newTestService(t, handler)

	tpl, err := svc.CreateTPL(context.Background(), "key", 9, CreateTPLRequest{
		MiningLicenseNumber: "LLL/100/42",
		Cubes:               4,
		LorryNumber:         "WP-1234",
		Route01:             "Colombo",
		Destination:         "Kandy",
	})
	if err != nil {
		t.Fatalf("CreateTPL: %v", err)
	}
	if tpl.ID != 88 {
		t.Errorf("tpl id = %d", tpl.ID)
	}
	if tpl.EstimatedHours != 6 {
		t.Errorf("estimated hours = %v", tpl.EstimatedHours)
	}
	want := []string{"GET /issues/42.json", "PUT /issues/42.json", "POST /issues.json"}
	if len(*calls) != len(want) {
		t.Fatalf("calls = %v", *calls)
	}
	for i := range want {
		if (*calls)[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, (*calls)[i], want[i])
		}
	}
}

func TestCreateTPLInsufficientRoyalty(t *testing.T) {
	handler, calls := tplTestHandler(t, "1000", "20", 120)
	svc, _ := newTestService(t, handler)

	_, err := svc.CreateTPL(context.Background(), "key", 9, CreateTPLRequest{
		MiningLicenseNumber: "LLL/100/42",
		Cubes:               4,
	})
	if err == nil || !strings.Contains(err.Error(), "insufficient royalty balance. Required: 2000, Available: 1000") {
		t.Fatalf("err = %v", err)
	}
	// The license must not be touched when the check fails.
	for _, call := range *calls {
		if strings.HasPrefix(call, "PUT") || strings.HasPrefix(call, "POST") {
			t.Errorf("unexpected write %q", call)
		}
	}
}

func TestCreateTPLInsufficientCubes(t *testing.T) {
	handler, _ := tplTestHandler(t, "9000", "2", 120)
	svc, _ := newTestService(t, handler)

	_, err := svc.CreateTPL(context.Background(), "key", 9, CreateTPLRequest{
		MiningLicenseNumber: "LLL/100/42",
		Cubes:               4,
	})
	if err == nil || !strings.Contains(err.Error(), "insufficient remaining cubes") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateTPLBadLicenseNumber(t *testing.T) {
	svc, _ := newTestService(t, http.NotFoundHandler())
	_, err := svc.CreateTPL(context.Background(), "key", 9, CreateTPLRequest{MiningLicenseNumber: "nonsense"})
	if err == nil || !strings.Contains(err.Error(), "invalid mining license number format") {
		t.Fatalf("err = %v", err)
	}
}

func TestTransportLicensesStatus(t *testing.T) {
	now := time.Now().UTC()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeIssues(w,
			redmine.Issue{
				ID:             1,
				CreatedOn:      now.Add(-2 * time.Hour).Format("2006-01-02T15:04:05Z"),
				EstimatedHours: 6,
				CustomFields: redmine.CustomFields{
					{ID: redmine.FieldTPLLicenseNumber, Name: redmine.NameLicenseNumber, Value: "LLL/100/42"},
					{Name: redmine.NameLorryNumber, Value: "WP-1234"},
				},
			},
			redmine.Issue{
				ID:             2,
				CreatedOn:      now.Add(-10 * time.Hour).Format("2006-01-02T15:04:05Z"),
				EstimatedHours: 6,
				CustomFields: redmine.CustomFields{
					{ID: redmine.FieldTPLLicenseNumber, Name: redmine.NameLicenseNumber, Value: "LLL/100/42"},
				},
			},
			redmine.Issue{
				ID: 3,
				CustomFields: redmine.CustomFields{
					{ID: redmine.FieldTPLLicenseNumber, Name: redmine.NameLicenseNumber, Value: "LLL/100/7"},
				},
			},
		)
	})
	svc, _ := newTestService(t, handler)

	permits, err := svc.TransportLicenses(context.Background(), "key", 9, "LLL/100/42")
	if err != nil {
		t.Fatalf("TransportLicenses: %v", err)
	}
	if len(permits) != 2 {
		t.Fatalf("got %d permits, want 2", len(permits))
	}
	if permits[0].Status != "Active" {
		t.Errorf("fresh permit status = %q", permits[0].Status)
	}
	if permits[1].Status != "Expired" {
		t.Errorf("stale permit status = %q", permits[1].Status)
	}
}

func TestRequestLicenseRelabels(t *testing.T) {
	var updateBody struct {
		Issue redmine.IssueUpdate `json:"issue"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/issues.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {ID: 55}})
	})
	mux.HandleFunc("/issues/55.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&updateBody)
		w.WriteHeader(http.StatusNoContent)
	})
	svc, _ := newTestService(t, mux)

	created, err := svc.RequestLicense(context.Background(), "key", 9, "0712345678", LicenseRequest{
		LandName: "Galpitiya",
	})
	if err != nil {
		t.Fatalf("RequestLicense: %v", err)
	}
	if created.MiningLicenseNumber != "LLL/100/55" {
		t.Errorf("returned number = %q", created.MiningLicenseNumber)
	}
	if len(updateBody.Issue.CustomFields) != 1 {
		t.Fatalf("relabel fields = %+v", updateBody.Issue.CustomFields)
	}
	label := updateBody.Issue.CustomFields[0]
	if label.ID != redmine.FieldLicenseNumber || label.Value != "ML Request LLL/100/55" {
		t.Errorf("stored label = %+v", label)
	}
}

func TestRequestLicenseRelabelFailureReportsIssueID(t *testing.T) {
	var methods []string
	mux := http.NewServeMux()
	mux.HandleFunc("/issues.json", func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {ID: 55}})
	})
	mux.HandleFunc("/issues/55.json", func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc, _ := newTestService(t, mux)

	_, err := svc.RequestLicense(context.Background(), "key", 9, "0712345678", LicenseRequest{
		LandName: "Galpitiya",
	})
	if err == nil {
		t.Fatal("expected error when the relabel update fails")
	}
	if !strings.Contains(err.Error(), "55") {
		t.Errorf("error %q does not name the created issue", err)
	}
	// The created issue stays behind for manual repair; no rollback call.
	for _, m := range methods {
		if m == http.MethodDelete {
			t.Errorf("unexpected rollback request, methods = %v", methods)
		}
	}
}

func TestAddRoyalty(t *testing.T) {
	var update redmine.IssueUpdate
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]redmine.Issue{"issue": {
				ID: 42,
				CustomFields: redmine.CustomFields{
					{ID: redmine.FieldRoyalty, Name: redmine.NameRoyalty, Value: "1500"},
				},
			}})
		case http.MethodPut:
			var body struct {
				Issue redmine.IssueUpdate `json:"issue"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			update = body.Issue
			w.WriteHeader(http.StatusNoContent)
		}
	})
	svc, _ := newTestService(t, handler)

	total, err := svc.AddRoyalty(context.Background(), "key", 42, 500)
	if err != nil {
		t.Fatalf("AddRoyalty: %v", err)
	}
	if total != 2000 {
		t.Errorf("total = %d", total)
	}
	if len(update.CustomFields) != 1 || update.CustomFields[0].Value != "2000" {
		t.Errorf("update = %+v", update)
	}
}
