package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mmpro-lk/gsmb-backend/internal/middleware"
	"github.com/mmpro-lk/gsmb-backend/internal/services/police"
)

func (a *API) policeRoutes(r *mux.Router) {
	r.HandleFunc("/check-lorry-number", a.handlePoliceCheckLorry).Methods(http.MethodGet)
	r.HandleFunc("/create-complaint", a.handlePoliceCreateComplaint).Methods(http.MethodPost)
}

func (a *API) handlePoliceCheckLorry(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	lorryNumber := r.URL.Query().Get("lorry_number")
	if lorryNumber == "" {
		respondError(w, http.StatusBadRequest, "lorry_number is required")
		return
	}
	check, err := a.services.Police.CheckLorryNumber(r.Context(), claims.APIKey, lorryNumber)
	if err != nil {
		if errors.Is(err, police.ErrNoValidPermit) {
			respondJSON(w, http.StatusOK, map[string]any{"IsValid": false, "error": err.Error()})
			return
		}
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, check)
}

type policeComplaintBody struct {
	VehicleNumber string `json:"vehicle_number"`
}

func (a *API) handlePoliceCreateComplaint(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	var body policeComplaintBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.VehicleNumber == "" {
		respondError(w, http.StatusBadRequest, "vehicle_number is required")
		return
	}
	id, err := a.services.Police.CreateComplaint(r.Context(), claims.APIKey, claims.UserID, body.VehicleNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "complaint_id": id})
}
