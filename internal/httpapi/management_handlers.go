package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mmpro-lk/gsmb-backend/internal/middleware"
)

func (a *API) managementRoutes(r *mux.Router) {
	r.HandleFunc("/monthly-total-sand", a.handleManagementMonthlyCubes).Methods(http.MethodGet)
	r.HandleFunc("/monthly-mining-license-count", a.handleManagementMonthlyLicenses).Methods(http.MethodGet)
	r.HandleFunc("/fetch-top-mining-holders", a.handleManagementTopHolders).Methods(http.MethodGet)
	r.HandleFunc("/fetch-royalty-counts", a.handleManagementRoyalty).Methods(http.MethodGet)
	r.HandleFunc("/transport-license-destination", a.handleManagementDestinations).Methods(http.MethodGet)
	r.HandleFunc("/total-location-ml", a.handleManagementLocations).Methods(http.MethodGet)
	r.HandleFunc("/complaint-counts", a.handleManagementComplaints).Methods(http.MethodGet)
	r.HandleFunc("/role-counts", a.handleManagementRoles).Methods(http.MethodGet)
	r.HandleFunc("/mining-license-count", a.handleManagementLicenseTally).Methods(http.MethodGet)
	r.HandleFunc("/unactive-gsmb-officers", a.handleManagementInactiveOfficers).Methods(http.MethodGet)
	r.HandleFunc("/users/{type}", a.handleManagementUsersByType).Methods(http.MethodGet)
	r.HandleFunc("/active-gsmb-officers/{id:[0-9]+}", a.handleManagementActivateOfficer).Methods(http.MethodPut)
	r.HandleFunc("/download-attachment/{id:[0-9]+}", a.handleDownloadAttachment).Methods(http.MethodGet)
}

func (a *API) handleManagementMonthlyCubes(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	months, err := a.services.Management.MonthlyCubes(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, months)
}

func (a *API) handleManagementMonthlyLicenses(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	months, err := a.services.Management.MonthlyLicenseCounts(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, months)
}

func (a *API) handleManagementTopHolders(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	holders, err := a.services.Management.TopMiningHolders(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, holders)
}

func (a *API) handleManagementRoyalty(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	summary, err := a.services.Management.RoyaltyCounts(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (a *API) handleManagementDestinations(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	counts, err := a.services.Management.TransportDestinations(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (a *API) handleManagementLocations(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	counts, err := a.services.Management.LicenseLocations(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (a *API) handleManagementComplaints(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	counts, err := a.services.Management.ComplaintTally(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (a *API) handleManagementRoles(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	counts, err := a.services.Management.RoleTally(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (a *API) handleManagementLicenseTally(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	counts, err := a.services.Management.LicenseTally(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (a *API) handleManagementInactiveOfficers(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	officers, err := a.services.Management.InactiveOfficers(r.Context(), claims.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, officers)
}

// userTypeSlugs maps URL slugs to the account type field values stored on
// Redmine users.
var userTypeSlugs = map[string]string{
	"police":          "police",
	"gsmb-officer":    "gsmbOfficer",
	"mining-engineer": "miningEngineer",
	"ml-owner":        "mlOwner",
}

func (a *API) handleManagementUsersByType(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	slug := mux.Vars(r)["type"]
	userType, ok := userTypeSlugs[slug]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown user type")
		return
	}
	var err error
	var users any
	if slug == "ml-owner" {
		users, err = a.services.Management.ActiveMLOwners(r.Context(), claims.APIKey)
	} else {
		users, err = a.services.Management.UsersByType(r.Context(), claims.APIKey, userType)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (a *API) handleManagementActivateOfficer(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if err := a.services.Management.ActivateOfficer(r.Context(), claims.APIKey, pathInt(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
