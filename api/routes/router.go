package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/controllers"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/api/middleware"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/deadletter"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/ingest"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/internal/stats"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/config"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/logger"
	"github.com/Ibrahim-newaeon/Stratum-AI-Final-Updates-Dec-2025-sub001/pkg/redis"
)

// RouterParams carries everything the HTTP surface needs. Pingers may be nil
// when the corresponding dependency is not wired (pubsub in inline mode).
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         controllers.Pinger
	Redis      *redis.Client
	PubSub     controllers.Pinger
	Ingest     ingest.Service
	DeadLetter deadletter.Service
	Stats      stats.Service
	Registry   *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, redisPinger(params.Redis), params.PubSub))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	submitPolicy := middleware.NewSubmitRateLimitPolicy(
		"submit",
		cfg.RateLimit.SubmitWindow,
		cfg.RateLimit.SubmitIPLimit,
		cfg.RateLimit.SubmitTenantLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.SubmitRateLimit(submitPolicy, params.Redis, logg)).
			Post("/events", controllers.SubmitEvent(params.Ingest, logg))

		r.Route("/dlq", func(r chi.Router) {
			r.Get("/", controllers.ListDeadLetters(params.DeadLetter, logg))
			r.Post("/{entryId}/reprocess", controllers.ReprocessDeadLetter(params.DeadLetter, logg))
			r.Post("/{entryId}/abandon", controllers.AbandonDeadLetter(params.DeadLetter, logg))
		})

		r.Route("/stats", func(r chi.Router) {
			r.Post("/rollup", controllers.TriggerRollup(params.Stats, logg))
			r.Get("/", controllers.ListStats(params.Stats, logg))
		})
	})

	return r
}

// redisPinger avoids a typed-nil Pinger when redis is not configured.
func redisPinger(client *redis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}
