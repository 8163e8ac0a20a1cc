package routes

import (
	"net/http"

	"github.com/AndresDavidVV/ClinicaIA/pkg/gateway/middleware"
	"github.com/gorilla/mux"
)

// NewRouter mounts the doctor and admin APIs under /api/v1 and health and
// metrics at the root. CORS wraps the router itself because mux only runs
// router middleware for matched routes, and no route matches OPTIONS.
func NewRouter(maxRequestBody int64, doctor *DoctorHandler, admin *AdminHandler, health *MetricsHandler) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.BodyLimit(maxRequestBody))

	health.Register(router)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	doctor.Register(apiRouter)
	admin.Register(apiRouter)

	return middleware.CORS(router)
}
