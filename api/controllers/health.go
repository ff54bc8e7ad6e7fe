package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/abhishekY2401/product-service/api/responses"
	"github.com/abhishekY2401/product-service/pkg/config"
	"github.com/abhishekY2401/product-service/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthBody struct {
	Status string            `json:"status"`
	Env    string            `json:"env,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteJSON(w, http.StatusOK, healthBody{Status: "live", Env: cfg.App.Env})
	}
}

// HealthReady pings every dependency; any failure answers 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		body := healthBody{Status: "ready", Env: cfg.App.Env, Checks: map[string]string{}}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				body.Checks[name] = "unavailable"
				body.Status = "unavailable"
				status = http.StatusServiceUnavailable
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			body.Checks[name] = "ok"
		}
		responses.WriteJSON(w, status, body)
	}
}
