package web

import (
	"fmt"
	"net/http"

	"filippo.io/csrf"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	httpmw "github.com/wolfeidau/townhall/internal/http"
	"github.com/wolfeidau/townhall/internal/logger"
)

// RouterConfig configures the middleware around the signup routes.
type RouterConfig struct {
	Logger         zerolog.Logger
	CORSOrigins    []string // Allowed origins for /api/ routes
	TrustedOrigins []string // Extra origins allowed to post the HTML form
	TrustProxy     bool     // Honour X-Forwarded-For and X-Real-IP
}

// NewRouter mounts the handler routes. HTML routes get cross-origin request
// protection, /api/ routes get CORS, and every response may be gzip encoded.
func NewRouter(h *Handler, cfg RouterConfig) (http.Handler, error) {
	protection := csrf.New()
	for _, origin := range cfg.TrustedOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid trusted origin %q: %w", origin, err)
		}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(logger.HTTPRequests(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(httpmw.ClientIPMiddleware(cfg.TrustProxy))

	r.NotFound(h.NotFound)
	r.Get("/healthz", h.Healthz)

	r.Group(func(r chi.Router) {
		r.Use(protection.Handler)
		r.Get("/", h.Home)
		r.Get("/signup", h.SignupPage)
		r.Post("/signup", h.SignupSubmit)
		r.Get("/verify-email", h.VerifyEmail)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(withCORS(cfg.CORSOrigins))
		r.Post("/signup", h.APISignup)
	})

	return gzhttp.GzipHandler(r), nil
}

func withCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}).Handler
}
