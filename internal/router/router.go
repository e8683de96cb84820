package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/arko-chat/flurrybridge/components/assets"
	"github.com/arko-chat/flurrybridge/internal/handlers"
	"github.com/arko-chat/flurrybridge/internal/metrics"
	"github.com/arko-chat/flurrybridge/internal/middleware"
	"github.com/arko-chat/flurrybridge/internal/session"
)

type Options struct {
	// AllowedOrigins enables CORS for a harness served from elsewhere,
	// such as a frontend dev server.
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

func New(h *handlers.Handler, store *session.Store, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	if opts.Logger != nil {
		r.Use(requestLogger(opts.Logger))
	}
	r.Use(opts.Metrics.Middleware)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", session.HeaderName},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", h.HandleHealth)
	r.Handle("/metrics", opts.Metrics.Handler())
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assets.DistFS()))))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(store))

		r.Get("/", handleIndex)
		r.Post("/api/call/{method}", h.HandleCall)
		r.Post("/api/decision", h.HandleDecision)
		r.Get("/ws/events/{channel}", h.HandleEvents)
	})

	return r
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := assets.Index()
	if err != nil {
		http.Error(w, "harness not bundled", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
