package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/meeplelog/meeplelog/internal/api/handler"
	customMiddleware "github.com/meeplelog/meeplelog/internal/api/middleware"
	"github.com/meeplelog/meeplelog/internal/config"
	"github.com/meeplelog/meeplelog/internal/repository/postgres"
	"github.com/meeplelog/meeplelog/internal/repository/redis"
	"github.com/meeplelog/meeplelog/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", customMiddleware.PlayerHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize repositories
	sessionRepo := postgres.NewSessionRepository(db.Pool)
	playerRepo := postgres.NewPlayerRepository(db.Pool)
	gameRepo := postgres.NewGameRepository(db.Pool)
	collectionRepo := postgres.NewCollectionRepository(db.Pool)
	statsRepo := postgres.NewStatsRepository(db.Pool)

	// Initialize cache layer
	statsCache := redis.NewStatsCache(redisClient, cfg.Stats.CacheTTL)
	invalidator := redis.NewInvalidator(redisClient)
	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)

	// Initialize services
	editService := service.NewEditService(sessionRepo, invalidator, cfg.Edit.RemoteTimeout)
	sessionService := service.NewSessionService(sessionRepo, editService)
	statsService := service.NewStatsService(statsRepo, statsCache)
	collectionService := service.NewCollectionService(collectionRepo)

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(sessionService)
	playerHandler := handler.NewPlayerHandler(playerRepo, sessionService)
	gameHandler := handler.NewGameHandler(gameRepo)
	collectionHandler := handler.NewCollectionHandler(collectionService)
	statsHandler := handler.NewStatsHandler(statsService)

	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		r.Group(func(r chi.Router) {
			r.Use(rateLimitMiddleware.Limit)

			// Session routes
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sessionHandler.List)
				r.Post("/", sessionHandler.Create)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", sessionHandler.Get)
					r.Delete("/", sessionHandler.Delete)

					// Editing needs the acting player for cache scoping
					r.With(customMiddleware.PlayerContext).Post("/edit", sessionHandler.Edit)
				})
			})

			// Player routes
			r.Route("/players", func(r chi.Router) {
				r.Get("/", playerHandler.List)
				r.Post("/", playerHandler.Create)

				r.Route("/{playerID}", func(r chi.Router) {
					r.Get("/", playerHandler.Get)
					r.Get("/sessions", playerHandler.Sessions)
					r.Get("/stats", statsHandler.PlayerStats)
				})
			})

			// Game routes
			r.Route("/games", func(r chi.Router) {
				r.Get("/", gameHandler.List)

				r.Route("/{gameID}", func(r chi.Router) {
					r.Get("/", gameHandler.Get)
					r.Get("/history", gameHandler.History)
				})
			})

			// Collection routes (scoped to the acting player)
			r.Route("/collection", func(r chi.Router) {
				r.Use(customMiddleware.PlayerContext)

				r.Get("/", collectionHandler.List)
				r.Post("/", collectionHandler.Add)

				r.Route("/{entryID}", func(r chi.Router) {
					r.Delete("/", collectionHandler.Remove)
					r.Put("/tags", collectionHandler.SetTags)
				})
			})
		})
	})

	return r
}
