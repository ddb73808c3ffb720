package handler

import (
	"net/http"

	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
	wrap "github.com/Temutjin2k/ride-hail-client/pkg/logger/wrapper"
)

type SessionCounter interface {
	Len() int
}

type Health struct {
	serviceName string
	sessions    SessionCounter
	log         logger.Logger
}

func NewHealth(serviceName string, sessions SessionCounter, log logger.Logger) *Health {
	return &Health{
		serviceName: serviceName,
		sessions:    sessions,
		log:         log,
	}
}

// HealthCheck godoc
// @Summary      Health Check
// @Description  Returns the health status of the service
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /health [get]
func (a *Health) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "health_check")

	info := map[string]any{
		"service-name": a.serviceName,
	}
	if a.sessions != nil {
		info["live-sessions"] = a.sessions.Len()
	}

	response := envelope{
		"status":      "available",
		"system_info": info,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		a.log.Error(ctx, "healthcheck", err)
		return
	}
}
