package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/partnerly/dispatch-backend/api/controllers"
	"github.com/partnerly/dispatch-backend/api/middleware"
	"github.com/partnerly/dispatch-backend/internal/requests"
	"github.com/partnerly/dispatch-backend/internal/sweep"
	"github.com/partnerly/dispatch-backend/pkg/config"
	"github.com/partnerly/dispatch-backend/pkg/enums"
	"github.com/partnerly/dispatch-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisP pinger,
	requestsSvc requests.Service,
	slaJob *sweep.SLAExpiryJob,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1/requests", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/", controllers.SubmitRequest(requestsSvc, logg))
		r.With(middleware.RequireRole(string(enums.RoleAdmin), logg)).
			Get("/", controllers.ListRequests(requestsSvc, logg))

		r.Route("/{requestId}", func(r chi.Router) {
			r.Get("/", controllers.GetRequest(requestsSvc, logg))
			r.Get("/history", controllers.RequestHistory(requestsSvc, logg))
			r.Get("/assignments", controllers.RequestAssignments(requestsSvc, logg))

			r.With(middleware.RequireRole(string(enums.RoleAdmin), logg)).
				Post("/assign", controllers.AssignRequest(requestsSvc, logg))
			r.With(middleware.RequireRole(string(enums.RolePartner), logg)).
				Post("/accept", controllers.AcceptRequest(requestsSvc, logg))
			r.With(middleware.RequireRole(string(enums.RolePartner), logg)).
				Post("/reject", controllers.RejectRequest(requestsSvc, logg))
			r.Post("/status", controllers.AdvanceRequest(requestsSvc, logg))
		})
	})

	r.Route("/api/internal/v1", func(r chi.Router) {
		r.Use(middleware.ServiceAuth(cfg.JWT, logg))
		r.Post("/sla/sweep", controllers.TriggerSLASweep(slaJob, logg))
	})

	return r
}
