package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/responses"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/config"
	pkgerrors "github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/errors"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is the connectivity check each backing dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Stratum-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks every wired dependency. Nil pingers are skipped so the
// worker and API variants can share the handler.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, pubsubP Pinger) http.HandlerFunc {
	checks := []struct {
		name   string
		pinger Pinger
	}{
		{name: "postgres", pinger: dbP},
		{name: "redis", pinger: redisP},
		{name: "pubsub", pinger: pubsubP},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Stratum-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		statuses := map[string]string{}
		healthy := true
		for _, check := range checks {
			if check.pinger == nil {
				continue
			}
			if err := check.pinger.Ping(ctx); err != nil {
				healthy = false
				statuses[check.name] = "unavailable"
				if logg != nil {
					logCtx := logg.WithField(ctx, "dependency", check.name)
					logg.Error(logCtx, "readiness check failed", err)
				}
				continue
			}
			statuses[check.name] = "ok"
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").
				WithDetails(statuses)
			responses.WriteError(ctx, nil, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": statuses})
	}
}
