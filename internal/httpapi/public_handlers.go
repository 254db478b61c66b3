package httpapi

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mmpro-lk/gsmb-backend/internal/otp"
)

func (a *API) publicRoutes(r *mux.Router) {
	r.HandleFunc("/validate-lorry-number", a.handlePublicValidateLorry).Methods(http.MethodGet)
	r.HandleFunc("/request-otp", a.handlePublicRequestOTP).Methods(http.MethodPost)
	r.HandleFunc("/verify-otp", a.handlePublicVerifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/create-complaint", a.handlePublicCreateComplaint).Methods(http.MethodPost)
}

func (a *API) handlePublicValidateLorry(w http.ResponseWriter, r *http.Request) {
	lorryNumber := r.URL.Query().Get("lorry_number")
	if lorryNumber == "" {
		respondError(w, http.StatusBadRequest, "lorry_number is required")
		return
	}
	valid, err := a.services.Public.IsLorryNumberValid(r.Context(), lorryNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

type otpRequestBody struct {
	Phone string `json:"phone"`
}

func (a *API) handlePublicRequestOTP(w http.ResponseWriter, r *http.Request) {
	var body otpRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Phone == "" {
		respondError(w, http.StatusBadRequest, "phone is required")
		return
	}
	if err := a.services.Public.RequestOTP(r.Context(), body.Phone); err != nil {
		a.logger.WithError(err).Warn("OTP issue failed")
		respondError(w, http.StatusInternalServerError, "Failed to send OTP")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type otpVerifyBody struct {
	Phone string `json:"phone"`
	Code  string `json:"otp"`
}

func (a *API) handlePublicVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body otpVerifyBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Phone == "" || body.Code == "" {
		respondError(w, http.StatusBadRequest, "phone and otp are required")
		return
	}
	err := a.services.Public.VerifyOTP(r.Context(), body.Phone, body.Code)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]bool{"verified": true})
	case errors.Is(err, otp.ErrInvalid), errors.Is(err, otp.ErrNotFound):
		respondError(w, http.StatusUnauthorized, err.Error())
	default:
		respondServiceError(w, err)
	}
}

type publicComplaintBody struct {
	Phone         string `json:"phone"`
	VehicleNumber string `json:"vehicle_number"`
}

func (a *API) handlePublicCreateComplaint(w http.ResponseWriter, r *http.Request) {
	var body publicComplaintBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Phone == "" || body.VehicleNumber == "" {
		respondError(w, http.StatusBadRequest, "phone and vehicle_number are required")
		return
	}
	id, err := a.services.Public.CreateComplaint(r.Context(), body.Phone, body.VehicleNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "complaint_id": id})
}
