package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/filtering"
	"github.com/spigell/matchmaker/internal/ranking"
	"github.com/spigell/matchmaker/internal/session"
	"github.com/spigell/matchmaker/internal/vehicle"
)

const defaultHandlerTimeout = 55 * time.Second

// Deps are the components the handlers are built from.
type Deps struct {
	Inventory *vehicle.Vehicles
	// Ranker serves /rank and new sessions.
	Ranker *ranking.Ranker
	// Remote serves /ai-match-score. Nil disables it.
	Remote ai.Scorer
	// Filters narrow the /rank deck. Nil uses the defaults.
	Filters  *filtering.Config
	Sessions *session.Store
	// HandlerTimeout bounds every request. Zero uses a default below the write timeout.
	HandlerTimeout time.Duration
	Logger         *zap.Logger
}

type handlers struct {
	Deps
}

// NewRouter builds the HTTP API.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Inventory == nil {
		deps.Inventory = &vehicle.Vehicles{}
	}
	if deps.Ranker == nil {
		deps.Ranker = &ranking.Ranker{Logger: deps.Logger}
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore(deps.Inventory, deps.Ranker, deps.Logger)
	}
	if deps.HandlerTimeout <= 0 {
		deps.HandlerTimeout = defaultHandlerTimeout
	}

	h := &handlers{Deps: deps}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.HandlerTimeout))
	r.Use(cors)

	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/match-score", h.matchScore)
		r.Post("/ai-match-score", h.aiMatchScore)
		r.Post("/rank", h.rank)

		r.Get("/vehicles", h.listVehicles)
		r.Get("/vehicles/{id}", h.getVehicle)

		r.Post("/sessions", h.createSession)
		r.Route("/sessions/{session}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)
			r.Put("/preferences", h.setPreferences)
			r.Post("/favorites/{vehicle}", h.favorite)
			r.Delete("/favorites/{vehicle}", h.removeFavorite)
			r.Post("/passes/{vehicle}", h.pass)
			r.Delete("/passes/{vehicle}", h.restorePass)
			r.Post("/undo", h.undo)
			r.Get("/deck", h.deck)
		})
	})

	return r
}

// rankContext leaves a tenth of the handler timeout to write the ranked deck
// after the remote scorer is cut off.
func (h *handlers) rankContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.HandlerTimeout-h.HandlerTimeout/10)
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
