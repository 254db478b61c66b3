package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mmpro-lk/gsmb-backend/internal/middleware"
	"github.com/mmpro-lk/gsmb-backend/internal/services/officer"
)

// maxUploadBytes bounds document uploads forwarded to Redmine.
const maxUploadBytes = 25 << 20

func (a *API) officerRoutes(r *mux.Router) {
	r.HandleFunc("/mlowners", a.handleOfficerMLOwners).Methods(http.MethodGet)
	r.HandleFunc("/mlowner-options", a.handleOfficerMLOwnerOptions).Methods(http.MethodGet)
	r.HandleFunc("/complaints", a.handleOfficerComplaints).Methods(http.MethodGet)
	r.HandleFunc("/license-counts", a.handleOfficerLicenseCounts).Methods(http.MethodGet)
	r.HandleFunc("/tpls", a.handleOfficerTransportPermits).Methods(http.MethodGet)
	r.HandleFunc("/mining-licenses", a.handleOfficerMiningLicenses).Methods(http.MethodGet)
	r.HandleFunc("/mining-license-requests", a.handleOfficerLicenseRequests).Methods(http.MethodGet)
	r.HandleFunc("/upload-mining-license", a.handleOfficerUploadLicense).Methods(http.MethodPost)
	r.HandleFunc("/upload-file", a.handleOfficerUploadFile).Methods(http.MethodPost)
	r.HandleFunc("/appointments", a.handleOfficerAppointments).Methods(http.MethodGet)
	r.HandleFunc("/create-appointment", a.handleOfficerCreateAppointment).Methods(http.MethodPost)
	r.HandleFunc("/issue-status/{id:[0-9]+}", a.handleOfficerChangeStatus).Methods(http.MethodPut)
	r.HandleFunc("/download-attachment/{id:[0-9]+}", a.handleDownloadAttachment).Methods(http.MethodGet)
}

func (a *API) handleOfficerMLOwners(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	owners, err := a.services.Officer.MLOwners(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, owners)
}

func (a *API) handleOfficerMLOwnerOptions(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	owners, err := a.services.Officer.MLOwnerOptions(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, owners)
}

func (a *API) handleOfficerComplaints(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	complaints, err := a.services.Officer.Complaints(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, complaints)
}

func (a *API) handleOfficerLicenseCounts(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	counts, err := a.services.Officer.LicenseCounts(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (a *API) handleOfficerTransportPermits(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	permits, err := a.services.Officer.TransportPermits(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, permits)
}

func (a *API) handleOfficerMiningLicenses(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	licenses, err := a.services.Officer.MiningLicenses(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, licenses)
}

func (a *API) handleOfficerLicenseRequests(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	requests, err := a.services.Officer.LicenseRequests(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

func (a *API) handleOfficerUploadLicense(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body officer.UploadLicenseRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Subject == "" || body.AssigneeID == 0 {
		respondError(w, http.StatusBadRequest, "subject and assignee_id are required")
		return
	}
	id, err := a.services.Officer.UploadLicense(r.Context(), claims.APIKey, body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

// handleOfficerUploadFile accepts a multipart document and stages it in
// Redmine, returning the upload id to reference from a license field.
func (a *API) handleOfficerUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	id, err := a.services.Officer.UploadFile(r.Context(), header.Filename, file)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{"upload_id": id})
}

func (a *API) handleOfficerAppointments(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	appointments, err := a.services.Officer.Appointments(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, appointments)
}

func (a *API) handleOfficerCreateAppointment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body officer.CreateAppointmentRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.AssignedToID == 0 || body.StartDate == "" {
		respondError(w, http.StatusBadRequest, "assigned_to_id and start_date are required")
		return
	}
	id, err := a.services.Officer.CreateAppointment(r.Context(), claims.APIKey, claims.UserID, body)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

type changeStatusBody struct {
	StatusID int `json:"new_status_id"`
}

func (a *API) handleOfficerChangeStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body changeStatusBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.StatusID == 0 {
		respondError(w, http.StatusBadRequest, "new_status_id is required")
		return
	}
	if err := a.services.Officer.ChangeStatus(r.Context(), claims.APIKey, pathInt(r, "id"), body.StatusID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
