package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-ops/meridian-ops/internal/billing"
	"github.com/meridian-ops/meridian-ops/internal/ledger"
	"github.com/meridian-ops/meridian-ops/internal/masterdata"
	"github.com/meridian-ops/meridian-ops/internal/observability"
	"github.com/meridian-ops/meridian-ops/internal/payouts"
	"github.com/meridian-ops/meridian-ops/internal/requirements"
	"github.com/meridian-ops/meridian-ops/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	BillingHandler      *billing.Handler
	LedgerHandler       *ledger.Handler
	RequirementsHandler *requirements.Handler
	PayoutsHandler      *payouts.Handler
	MasterDataHandler   *masterdata.Handler
	JobsHandler         *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if params.MasterDataHandler != nil {
			params.MasterDataHandler.MountRoutes(api)
		}
		if params.BillingHandler != nil {
			params.BillingHandler.MountRoutes(api)
		}
		if params.RequirementsHandler != nil {
			params.RequirementsHandler.MountRoutes(api)
		}
		if params.PayoutsHandler != nil {
			params.PayoutsHandler.MountRoutes(api)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(api)
		}
		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
