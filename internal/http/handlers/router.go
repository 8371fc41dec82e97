package handlers

import (
	"net/http"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/internal/http/middleware"
	"github.com/diagnosis/medcv-review/internal/http/response"
	"github.com/diagnosis/medcv-review/internal/service"
	pkgmw "github.com/diagnosis/medcv-review/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	// TrustProxy rewrites RemoteAddr from forwarding headers before rate limiting.
	TrustProxy bool

	Auth    *service.AuthService
	CVs     *service.CVService
	Reviews *service.ReviewService
	Admin   *service.AdminService

	// Limiter backs the login and forgot-password limits. Nil disables them.
	Limiter middleware.Limiter
	// Idempotency caches CV submissions. Nil disables it.
	Idempotency pkgmw.IdempotencyStore
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(pkgmw.RequestID)
	r.Use(pkgmw.ServiceName(cfg.ServiceName))
	r.Use(pkgmw.Logging)
	r.Use(pkgmw.Recoverer)
	r.Use(pkgmw.CORS(cfg.AllowedOrigins))
	r.Use(pkgmw.Health)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Can't find "+r.URL.Path+" on this server!")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Medical CV review API is running"))
	})

	var limit func(http.Handler) http.Handler
	if cfg.Limiter != nil {
		limit = middleware.NewRateLimiter(cfg.Limiter, middleware.RateLimitConfig{Prefix: "auth:"}).Middleware()
	}
	var idempotent func(http.Handler) http.Handler
	if cfg.Idempotency != nil {
		idempotent = pkgmw.Idempotency(cfg.Idempotency)
	}

	protect := middleware.Protect(cfg.Auth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/user", NewAuthHandler(cfg.Auth, limit).Routes())
		r.With(protect).Mount("/cv", NewCVHandler(cfg.CVs, idempotent).Routes())
		r.With(protect).Mount("/review", NewReviewHandler(cfg.Reviews).Routes())
		r.With(protect, middleware.RestrictTo(domain.RoleAdmin)).Mount("/admin", NewAdminHandler(cfg.Admin, cfg.CVs).Routes())
	})
	return r
}
