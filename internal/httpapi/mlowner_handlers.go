package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mmpro-lk/gsmb-backend/internal/middleware"
	"github.com/mmpro-lk/gsmb-backend/internal/services/mlowner"
)

func (a *API) mlownerRoutes(r *mux.Router) {
	r.HandleFunc("/mining-licenses", a.handleOwnerLicenses).Methods(http.MethodGet)
	r.HandleFunc("/mining-home-licenses", a.handleOwnerHomeLicenses).Methods(http.MethodGet)
	r.HandleFunc("/ml-detail/{number}", a.handleOwnerLicenseDetail).Methods(http.MethodGet)
	r.HandleFunc("/mining-license/{id:[0-9]+}", a.handleOwnerLicenseByID).Methods(http.MethodGet)
	r.HandleFunc("/mining-license-summary", a.handleOwnerLicenseSummaries).Methods(http.MethodGet)
	r.HandleFunc("/pending-mining-licenses", a.handleOwnerPendingLicenses).Methods(http.MethodGet)
	r.HandleFunc("/mining-license-requests", a.handleOwnerLicenseRequests).Methods(http.MethodGet)
	r.HandleFunc("/ml-request", a.handleOwnerRequestLicense).Methods(http.MethodPost)
	r.HandleFunc("/create-tpl", a.handleOwnerCreateTPL).Methods(http.MethodPost)
	r.HandleFunc("/view-tpls", a.handleOwnerViewTPLs).Methods(http.MethodGet)
	r.HandleFunc("/update-royalty/{id:[0-9]+}", a.handleOwnerAddRoyalty).Methods(http.MethodPut)
	r.HandleFunc("/user-detail", a.handleOwnerUserDetail).Methods(http.MethodGet)
	r.HandleFunc("/download-attachment/{id:[0-9]+}", a.handleDownloadAttachment).Methods(http.MethodGet)
}

func (a *API) handleOwnerLicenses(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	licenses, err := a.services.MLOwner.Licenses(r.Context(), claims.APIKey, claims.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, licenses)
}

func (a *API) handleOwnerHomeLicenses(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	licenses, err := a.services.MLOwner.HomeLicenses(r.Context(), claims.APIKey, claims.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, licenses)
}

func (a *API) handleOwnerLicenseDetail(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	detail, err := a.services.MLOwner.LicenseDetailByNumber(r.Context(), claims.APIKey, claims.UserID, mux.Vars(r)["number"])
	if err != nil {
		if errors.Is(err, mlowner.ErrLicenseNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (a *API) handleOwnerLicenseByID(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	detail, err := a.services.MLOwner.LicenseByID(r.Context(), claims.APIKey, pathInt(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (a *API) handleOwnerLicenseSummaries(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	summaries, err := a.services.MLOwner.LicenseSummaries(r.Context(), claims.APIKey, claims.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (a *API) handleOwnerPendingLicenses(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	pending, err := a.services.MLOwner.PendingLicenseSummaries(r.Context(), claims.APIKey, claims.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pending)
}

func (a *API) handleOwnerLicenseRequests(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	requests, err := a.services.MLOwner.LicenseRequests(r.Context(), claims.APIKey, claims.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

type ownerRequestLicenseBody struct {
	Mobile string `json:"mobile"`
	mlowner.LicenseRequest
}

func (a *API) handleOwnerRequestLicense(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body ownerRequestLicenseBody
	if !decodeJSON(w, r, &body) {
		return
	}
	created, err := a.services.MLOwner.RequestLicense(r.Context(), claims.APIKey, claims.UserID, body.Mobile, body.LicenseRequest)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (a *API) handleOwnerCreateTPL(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body mlowner.CreateTPLRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	tpl, err := a.services.MLOwner.CreateTPL(r.Context(), claims.APIKey, claims.UserID, body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, tpl)
}

func (a *API) handleOwnerViewTPLs(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	number := r.URL.Query().Get("mining_license_number")
	if number == "" {
		respondError(w, http.StatusBadRequest, "mining_license_number is required")
		return
	}
	tpls, err := a.services.MLOwner.TransportLicenses(r.Context(), claims.APIKey, claims.UserID, number)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tpls)
}

type addRoyaltyBody struct {
	Amount int `json:"amount"`
}

func (a *API) handleOwnerAddRoyalty(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body addRoyaltyBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	total, err := a.services.MLOwner.AddRoyalty(r.Context(), claims.APIKey, pathInt(r, "id"), body.Amount)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"royalty": total})
}

func (a *API) handleOwnerUserDetail(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	user, err := a.services.MLOwner.UserDetail(r.Context(), claims.APIKey, claims.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
