package server

import (
	"net/http"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Temutjin2k/ride-hail-client/docs"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("GET /health", a.routes.health.HealthCheck)

	a.setupSwaggerRoutes()
	a.setupMetricsRoute()
	a.setupRideRoutes()
}

func (a *API) setupRideRoutes() {
	m, routes := a.m, a.routes

	a.mux.Handle("GET /rides/view", m.RequireRoles(routes.ride.GetView))                                     // Current view of the caller
	a.mux.Handle("POST /rides", m.RequireRoles(routes.ride.CreateRide, types.RolePassenger))                 // Request a ride
	a.mux.Handle("POST /rides/refresh", m.RequireRoles(routes.ride.Refresh))                                 // Reload the view
	a.mux.Handle("POST /rides/{ride_id}/accept", m.RequireRoles(routes.ride.AcceptRide, types.RoleDriver))   // Accept a pending ride
	a.mux.Handle("POST /rides/{ride_id}/advance", m.RequireRoles(routes.ride.AdvanceRide, types.RoleDriver)) // Start or complete the active ride
	a.mux.HandleFunc("GET /estimate", routes.ride.Estimate)                                                  // Public price estimate
	a.mux.Handle("DELETE /session", m.RequireRoles(routes.session.SignOut))                                  // Sign out
	a.mux.Handle("GET /ws/rides", m.RequireRoles(routes.stream.Serve))                                       // Live view over websocket
}

// setupSwaggerRoutes serves the Swagger UI
func (a *API) setupSwaggerRoutes() {
	a.mux.HandleFunc("/swagger/", httpSwagger.Handler(httpSwagger.InstanceName("gateway")))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func (a *API) setupMetricsRoute() {
	a.mux.Handle("/metrics", promhttp.Handler())
}
