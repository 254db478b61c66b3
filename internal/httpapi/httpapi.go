// Package httpapi exposes the role-scoped REST surface consumed by the
// front-ends. Each role gets its own path prefix and router, guarded by
// the session middleware and a role check; the general public prefix is
// unauthenticated but rate limited.
package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/mmpro-lk/gsmb-backend/internal/auth"
	"github.com/mmpro-lk/gsmb-backend/internal/metrics"
	"github.com/mmpro-lk/gsmb-backend/internal/middleware"
	"github.com/mmpro-lk/gsmb-backend/internal/redmine"
	"github.com/mmpro-lk/gsmb-backend/internal/services/engineer"
	"github.com/mmpro-lk/gsmb-backend/internal/services/management"
	"github.com/mmpro-lk/gsmb-backend/internal/services/mlowner"
	"github.com/mmpro-lk/gsmb-backend/internal/services/officer"
	"github.com/mmpro-lk/gsmb-backend/internal/services/police"
	"github.com/mmpro-lk/gsmb-backend/internal/services/public"
)

// Services bundles the per-role service layer behind the API.
type Services struct {
	MLOwner    *mlowner.Service
	Officer    *officer.Service
	Engineer   *engineer.Service
	Police     *police.Service
	Public     *public.Service
	Management *management.Service
}

// API is the HTTP surface of the server.
type API struct {
	logger         *logrus.Logger
	authManager    *auth.Manager
	login          *auth.LoginService
	redmine        *redmine.Client
	services       Services
	publicLimiter  *middleware.RateLimiter
	allowedOrigins []string
}

// New assembles the API from its collaborators.
func New(
	logger *logrus.Logger,
	authManager *auth.Manager,
	login *auth.LoginService,
	redmineClient *redmine.Client,
	services Services,
	publicLimiter *middleware.RateLimiter,
	allowedOrigins []string,
) *API {
	return &API{
		logger:         logger,
		authManager:    authManager,
		login:          login,
		redmine:        redmineClient,
		services:       services,
		publicLimiter:  publicLimiter,
		allowedOrigins: allowedOrigins,
	}
}

// Router builds the full route tree with its middleware stack.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Tracing(a.logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(a.allowedOrigins))

	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	authRoutes := r.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)

	pub := r.PathPrefix("/general-public").Subrouter()
	pub.Use(a.publicLimiter.Handler())
	a.publicRoutes(pub)

	owner := a.roleRouter(r, "/mining-owner", auth.RoleMLOwner)
	a.mlownerRoutes(owner)

	off := a.roleRouter(r, "/gsmb-officer", auth.RoleGSMBOfficer)
	a.officerRoutes(off)

	eng := a.roleRouter(r, "/mining-engineer", auth.RoleMiningEngineer)
	a.engineerRoutes(eng)

	pol := a.roleRouter(r, "/police-officer", auth.RolePoliceOfficer)
	a.policeRoutes(pol)

	mgmt := a.roleRouter(r, "/gsmb-management", auth.RoleGSMBManagement)
	a.managementRoutes(mgmt)

	return r
}

func (a *API) roleRouter(r *mux.Router, prefix, role string) *mux.Router {
	sub := r.PathPrefix(prefix).Subrouter()
	sub.Use(middleware.Auth(a.authManager, a.logger))
	sub.Use(middleware.RequireRole(role))
	return sub
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
