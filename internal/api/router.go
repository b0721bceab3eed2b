package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tasklane/tasklane-be/internal/api/handlers"
	"github.com/tasklane/tasklane-be/internal/auth"
	"github.com/tasklane/tasklane-be/internal/config"
	"github.com/tasklane/tasklane-be/internal/services"
	"github.com/tasklane/tasklane-be/internal/uploads"
	"github.com/tasklane/tasklane-be/internal/websocket"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Tokens       *auth.Service
	UserSvc      services.UserServiceProvider
	TaskSvc      services.TaskServiceProvider
	PortfolioSvc services.PortfolioServiceProvider
	EventSvc     services.EventServiceProvider
	Hub          *websocket.Hub
	Uploads      *uploads.Store
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Deps) *chi.Mux {
	handlers.ExposeErrorDetail = deps.Config.IsDevelopment()

	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.UserSvc, deps.Tokens)
	profileHandler := handlers.NewProfileHandler(deps.UserSvc, deps.PortfolioSvc, deps.Uploads)
	taskHandler := handlers.NewTaskHandler(deps.TaskSvc)
	portfolioHandler := handlers.NewPortfolioHandler(deps.PortfolioSvc, deps.Uploads)
	eventHandler := handlers.NewEventHandler(deps.EventSvc)
	systemHandler := handlers.NewSystemHandler(deps.Uploads.BaseDir())
	wsHandler := handlers.NewWebSocketHandler(deps.Hub)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Stored images; file names are random UUIDs
	fileServer := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.Uploads.BaseDir())))
	r.Get("/uploads/*", fileServer.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Everything below requires a verified identity
		r.Group(func(r chi.Router) {
			r.Use(deps.Tokens.Middleware(deps.UserSvc))

			r.Put("/auth/profile", authHandler.UpdateProfile)
			r.Put("/auth/settings", authHandler.UpdateSettings)

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.Get)
				r.Put("/", profileHandler.Update)
				r.Post("/avatar", profileHandler.UploadAvatar)
				r.Post("/change-password", profileHandler.ChangePassword)
				r.Delete("/account", profileHandler.DeleteAccount)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.List)
				r.Post("/", taskHandler.Create)
				r.Get("/stats/categories", taskHandler.CategoryStats)
				r.Get("/due-today", taskHandler.DueToday)
				r.Put("/bulk/status", taskHandler.BulkStatus)
				r.Put("/bulk/category", taskHandler.BulkCategory)
				r.Delete("/bulk/delete", taskHandler.BulkDelete)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", taskHandler.Get)
					r.Put("/", taskHandler.Update)
					r.Delete("/", taskHandler.Delete)
					r.Post("/subtasks", taskHandler.AddSubtask)
					r.Put("/subtasks/{subtaskId}", taskHandler.UpdateSubtask)
					r.Post("/tags", taskHandler.AddTags)
					r.Put("/star", taskHandler.ToggleStar)
					r.Put("/archive", taskHandler.ToggleArchive)
				})
			})

			r.Route("/portfolio", func(r chi.Router) {
				r.Get("/", portfolioHandler.List)
				r.Post("/", portfolioHandler.Create)
				r.Put("/{id}", portfolioHandler.Update)
				r.Delete("/{id}", portfolioHandler.Delete)
			})

			r.Get("/events", eventHandler.Recent)
			r.Get("/system/stats", systemHandler.Stats)
			r.Get("/ws", wsHandler.Serve)
		})
	})

	return r
}
