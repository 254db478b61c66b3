package httpapi

import (
	"net/http"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	session, err := a.login.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.logger.WithError(err).WithField("username", req.Username).Warn("login failed")
		respondError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	respondJSON(w, http.StatusOK, session)
}
