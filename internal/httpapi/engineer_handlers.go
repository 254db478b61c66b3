package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mmpro-lk/gsmb-backend/internal/middleware"
	"github.com/mmpro-lk/gsmb-backend/internal/services/engineer"
)

func (a *API) engineerRoutes(r *mux.Router) {
	r.HandleFunc("/me-pending-licenses", a.handleEngineerPending).Methods(http.MethodGet)
	r.HandleFunc("/meeting-scheduled-licenses", a.handleEngineerScheduled).Methods(http.MethodGet)
	r.HandleFunc("/me-approve-license", a.handleEngineerApproved).Methods(http.MethodGet)
	r.HandleFunc("/me-hold-licenses", a.handleEngineerHoldList).Methods(http.MethodGet)
	r.HandleFunc("/me-reject-licenses", a.handleEngineerRejected).Methods(http.MethodGet)
	r.HandleFunc("/me-licenses-count", a.handleEngineerCounts).Methods(http.MethodGet)
	r.HandleFunc("/me-appointments", a.handleEngineerSiteVisits).Methods(http.MethodGet)
	r.HandleFunc("/me-approve-single-license/{id:[0-9]+}", a.handleEngineerSingle).Methods(http.MethodGet)
	r.HandleFunc("/view-mining-license/{id:[0-9]+}", a.handleEngineerLicenseView).Methods(http.MethodGet)
	r.HandleFunc("/create-ml-appointment", a.handleEngineerScheduleVisit).Methods(http.MethodPost)
	r.HandleFunc("/approve-license/{id:[0-9]+}", a.handleEngineerApprove).Methods(http.MethodPut)
	r.HandleFunc("/reject-license/{id:[0-9]+}", a.handleEngineerReject).Methods(http.MethodPut)
	r.HandleFunc("/set-license-hold", a.handleEngineerHold).Methods(http.MethodPost)
	r.HandleFunc("/mining-owner-appointment/{id:[0-9]+}", a.handleEngineerOwnerMeeting).Methods(http.MethodPut)
	r.HandleFunc("/download-attachment/{id:[0-9]+}", a.handleDownloadAttachment).Methods(http.MethodGet)
}

func (a *API) handleEngineerPending(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	licenses, err := a.services.Engineer.PendingLicenses(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, licenses)
}

func (a *API) handleEngineerScheduled(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	licenses, err := a.services.Engineer.ScheduledLicenses(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, licenses)
}

func (a *API) handleEngineerApproved(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	licenses, err := a.services.Engineer.ApprovedLicenses(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, licenses)
}

func (a *API) handleEngineerHoldList(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	licenses, err := a.services.Engineer.HoldLicenses(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, licenses)
}

func (a *API) handleEngineerRejected(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	licenses, err := a.services.Engineer.RejectedLicenses(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, licenses)
}

func (a *API) handleEngineerCounts(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	counts, err := a.services.Engineer.LicenseStatusCounts(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (a *API) handleEngineerSiteVisits(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	visits, err := a.services.Engineer.SiteVisits(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, visits)
}

func (a *API) handleEngineerSingle(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	review, err := a.services.Engineer.SingleLicense(r.Context(), claims.APIKey, pathInt(r, "id"))
	if err != nil {
		if errors.Is(err, engineer.ErrNotMiningLicense) {
			respondError(w, http.StatusNotFound, "mining license not found")
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, review)
}

func (a *API) handleEngineerLicenseView(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	detail, err := a.services.Engineer.LicenseView(r.Context(), claims.APIKey, pathInt(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

type scheduleVisitBody struct {
	StartDate      string `json:"start_date"`
	LicenseNumber  string `json:"mining_license_number"`
	GoogleLocation string `json:"Google_location"`
}

func (a *API) handleEngineerScheduleVisit(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body scheduleVisitBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.StartDate == "" || body.LicenseNumber == "" {
		respondError(w, http.StatusBadRequest, "start_date and mining_license_number are required")
		return
	}
	id, err := a.services.Engineer.ScheduleVisit(r.Context(), claims.APIKey, claims.UserID,
		body.StartDate, body.LicenseNumber, body.GoogleLocation)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

type approveBody struct {
	SiteVisitID int `json:"site_visit_id"`
	engineer.ApproveRequest
}

func (a *API) handleEngineerApprove(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body approveBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.SiteVisitID == 0 {
		respondError(w, http.StatusBadRequest, "site_visit_id is required")
		return
	}
	if err := a.services.Engineer.Approve(r.Context(), claims.APIKey, pathInt(r, "id"), body.SiteVisitID, body.ApproveRequest); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type rejectBody struct {
	SiteVisitID int `json:"site_visit_id"`
	engineer.RejectRequest
}

func (a *API) handleEngineerReject(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body rejectBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.SiteVisitID == 0 {
		respondError(w, http.StatusBadRequest, "site_visit_id is required")
		return
	}
	if err := a.services.Engineer.Reject(r.Context(), claims.APIKey, pathInt(r, "id"), body.SiteVisitID, body.RejectRequest); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type holdBody struct {
	IssueID int    `json:"issue_id"`
	Reason  string `json:"reason_for_hold"`
}

func (a *API) handleEngineerHold(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body holdBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.IssueID == 0 || body.Reason == "" {
		respondError(w, http.StatusBadRequest, "issue_id and reason_for_hold are required")
		return
	}
	if err := a.services.Engineer.Hold(r.Context(), claims.APIKey, body.IssueID, body.Reason); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type ownerMeetingBody struct {
	StatusID int    `json:"status_id"`
	DueDate  string `json:"due_date"`
}

func (a *API) handleEngineerOwnerMeeting(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body ownerMeetingBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := a.services.Engineer.UpdateOwnerMeeting(r.Context(), claims.APIKey, pathInt(r, "id"), body.StatusID, body.DueDate); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
