package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/sitemap.xml", s.handleSitemap)

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimit, s.cfg.RateWindow))
		}

		r.Get("/editorials/{id}", s.handleEditorialHTML)
		r.Get("/restaurants/{slug}", s.handleRestaurantHTML)
		r.Get("/ws/annotate", s.handleAnnotateWebSocket)

		r.Route("/api", func(r chi.Router) {
			r.Get("/editorials", s.handleEditorials)
			r.Get("/editorials/featured", s.handleFeaturedEditorials)
			r.Get("/editorials/{id}", s.handleEditorial)
			r.Get("/editorials/{id}/page", s.handleEditorialPage)

			r.Get("/restaurants", s.handleRestaurants)
			r.Get("/restaurants/{slug}", s.handleRestaurant)
			r.Get("/restaurants/{slug}/page", s.handleRestaurantPage)

			r.Get("/regions", s.handleRegions)
			r.Get("/regions/{region}/details", s.handleRegionDetails)

			r.Get("/episodes", s.handleEpisodes)
			r.Get("/episodes/featured", s.handleFeaturedEpisodes)
			r.Get("/episodes/{id}", s.handleEpisode)

			r.Get("/videos", s.handleVideos)
			r.Get("/glossary", s.handleGlossary)
			r.Post("/annotate", s.handleAnnotate)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, s.logger, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}
