package api

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/avren/tasklist-be/internal/api/handlers"
	"github.com/avren/tasklist-be/internal/auth"
	"github.com/avren/tasklist-be/internal/services"
	"github.com/avren/tasklist-be/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	hub *websocket.Hub,
	tokens *auth.TokenService,
	userService services.UserServiceProvider,
	todoService services.TodoServiceProvider,
	eventService services.EventServiceProvider,
	db *sql.DB,
	corsOrigin string,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokens)
	todoHandler := handlers.NewTodoHandler(todoService, userService)
	eventHandler := handlers.NewEventHandler(eventService, userService)
	wsHandler := handlers.NewWebSocketHandler(hub, tokens, userService)
	healthHandler := handlers.NewHealthHandler(db)

	// Probes for load balancers
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(tokens.Middleware()).Get("/me", authHandler.Me)
		})

		// WebSocket event feed; authenticates via token query parameter
		r.Get("/ws", wsHandler.Serve)

		// Everything below requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware())

			r.Route("/todos", func(r chi.Router) {
				r.Get("/", todoHandler.GetAll)
				r.Post("/", todoHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", todoHandler.Get)
					r.Put("/", todoHandler.Update)
					r.Delete("/", todoHandler.Delete)
				})
			})

			r.Get("/events", eventHandler.GetRecent)
		})
	})

	return r
}
