package handlers

import (
	"net/http"

	"github.com/Gilad-Weinberger/Sikumon/internal/config"
	"github.com/Gilad-Weinberger/Sikumon/internal/middleware"
	"github.com/Gilad-Weinberger/Sikumon/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// Services bundles the route layer's dependencies.
type Services struct {
	Auth      *service.AuthService
	Summaries *service.SummaryService
	Users     *service.UserService
	Files     *service.FileService
}

// NewHandler wires middleware and routes.
func NewHandler(
	svc Services,
	lookup middleware.IdentityLookup,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.JWTSecret, lookup))

	authHandler := NewAuthHandler(svc.Auth, logger)
	summaryHandler := NewSummaryHandler(svc.Summaries, logger)
	userHandler := NewUserHandler(svc.Users, logger)
	fileHandler := NewFileHandler(svc.Files, logger, config.MaxUploadBytes())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.SignUp)
		r.Post("/auth/signin", authHandler.SignIn)
		r.Post("/auth/refresh", authHandler.Refresh)
		r.Post("/auth/signout", authHandler.SignOut)
		r.Get("/auth/user", authHandler.CurrentUser)

		r.Get("/summaries", summaryHandler.List)
		r.Get("/summaries/{id}", summaryHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Post("/summaries", summaryHandler.Create)
			r.Put("/summaries/{id}", summaryHandler.Update)
			r.Delete("/summaries/{id}", summaryHandler.Delete)

			r.Get("/users", userHandler.List)
			r.Post("/users", userHandler.Upsert)
			r.Get("/users/{id}", userHandler.Get)
			r.Put("/users/{id}", userHandler.Update)
			r.Delete("/users/{id}", userHandler.Delete)

			r.Post("/files", fileHandler.Upload)
			r.Delete("/files", fileHandler.Remove)
		})
	})

	return &Handler{Router: r}
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
