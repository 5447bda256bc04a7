package handlers

import (
	"net/http"
	"time"

	"github.com/camden-git/pathclassifier/permissions"
	"github.com/camden-git/pathclassifier/realtime"
	"github.com/camden-git/pathclassifier/repository"
	"github.com/camden-git/pathclassifier/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// RouterDeps is everything NewRouter needs to mount the API.
type RouterDeps struct {
	Users       repository.UserRepository
	Images      *repository.ImageRepository
	Labels      *repository.LabelRepository
	Submissions *services.SubmissionService
	Search      *services.SearchService
	Hub         *realtime.Hub

	JWTKey         []byte
	JWTExpiration  time.Duration
	MaxUploadBytes int64
	AllowedOrigins []string
	RequestTimeout time.Duration

	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(deps RouterDeps) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "ETag"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	authHandler := NewAuthHandler(deps.Users, deps.JWTKey, deps.JWTExpiration)
	submissionHandler := &SubmissionHandler{Submissions: deps.Submissions, Search: deps.Search, MaxUploadBytes: deps.MaxUploadBytes}
	labelHandler := &LabelHandler{Labels: deps.Labels}
	imageHandler := &ImageHandler{Images: deps.Images}
	permissionHandler := &PermissionHandler{}

	requireAuth := func(next http.Handler) http.Handler {
		return AuthMiddleware(deps.Users, deps.JWTKey, next)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// websocket connections are long lived, keep them out of the request timeout
		if deps.Hub != nil {
			r.With(requireAuth).Get("/ws", deps.Hub.ServeWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.With(requireAuth).Get("/me", authHandler.CurrentUser)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Route("/submissions", func(r chi.Router) {
					r.With(RequireContributor).Post("/", submissionHandler.Create)
					r.Get("/", submissionHandler.ListSubmissions)
					r.Post("/search", submissionHandler.SearchSubmissions)
					r.Get("/{submission_id}", submissionHandler.GetSubmission)
				})

				r.Get("/labels", labelHandler.ListLabels)
				r.Get("/images/{image_id}/thumbnail", imageHandler.ServeThumbnail)

				r.Route("/permissions", func(r chi.Router) {
					r.Get("/", permissionHandler.ListPermissionDefinitions)
					r.With(requirePermission(permissions.UserManage)).Get("/keys", permissionHandler.ListPermissionKeys)
				})
			})
		})
	})

	return r
}

func requirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireGlobalPermission(permission, next)
	}
}
