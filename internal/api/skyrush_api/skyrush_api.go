package skyrush_api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/SkyRush/internal/models"
	"github.com/BearBump/SkyRush/internal/services/accounts"
	"github.com/BearBump/SkyRush/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

type AccountsService interface {
	Register(ctx context.Context, in models.RegisterInput) (*accounts.Session, error)
	Login(ctx context.Context, in models.LoginInput) (*accounts.Session, error)
	Profile(ctx context.Context, userID string) (models.Profile, error)
}

type PackagesService interface {
	Create(ctx context.Context, ownerID string, in models.PackageCreateInput, imagePath string) (*models.Package, error)
	ListOwned(ctx context.Context, ownerID string) ([]*models.Package, error)
	TrackPublic(ctx context.Context, trackingNumber string) (*models.Package, error)
	UpdateStatus(ctx context.Context, actorRole, packageID string, in models.StatusUpdateInput) (*models.Package, error)
}

type RatesService interface {
	GetRates(ctx context.Context, req models.RateRequest) ([]models.RateQuote, error)
}

type CustomersService interface {
	FindCustomer(ctx context.Context, email, phone string) (*models.Customer, error)
}

type SessionParser interface {
	Parse(token string) (*session.Claims, error)
	TTL() time.Duration
}

type Deps struct {
	Accounts  AccountsService
	Packages  PackagesService
	Rates     RatesService
	Customers CustomersService
	Sessions  SessionParser

	Logger   *zap.Logger
	Registry *prometheus.Registry
}

type Options struct {
	Production     bool
	AllowedOrigins []string
	UploadDir      string
	MaxUploadBytes int64
	// SwaggerPath enables /swagger.json and /docs/* when set.
	SwaggerPath string
}

type SkyRushAPI struct {
	deps    Deps
	opts    Options
	metrics *httpMetrics
}

func New(deps Deps, opts Options) *SkyRushAPI {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if opts.UploadDir == "" {
		opts.UploadDir = os.TempDir()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &SkyRushAPI{
		deps:    deps,
		opts:    opts,
		metrics: newHTTPMetrics(deps.Registry),
	}
}

func (a *SkyRushAPI) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(a.requestLogger)
	r.Use(a.recoverPanics)
	r.Use(a.metrics.middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("SkyRush API is running..."))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.deps.Registry, promhttp.HandlerOpts{}))

	if a.opts.SwaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, a.opts.SwaggerPath)
		})
		swaggerURL := "/swagger.json"
		if fi, err := os.Stat(a.opts.SwaggerPath); err == nil {
			swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		}
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", a.register)
		r.Post("/login", a.login)
		r.Post("/logout", a.logout)
		r.With(a.requireSession).Get("/profile", a.profile)
	})

	r.Route("/api/packages", func(r chi.Router) {
		r.Get("/track/{trackingNumber}", a.trackPackage)

		r.Group(func(r chi.Router) {
			r.Use(a.requireSession)
			r.Post("/", a.createPackage)
			r.Get("/my-packages", a.listMyPackages)
			r.Put("/{id}/status", a.updatePackageStatus)
		})
	})

	r.Route("/api/shipstation", func(r chi.Router) {
		r.Get("/customer", a.getCustomer)
		r.Post("/rates", a.getRates)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.writeJSON(w, r, http.StatusNotFound, errorBody{Message: "Not Found - " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.writeJSON(w, r, http.StatusMethodNotAllowed, errorBody{Message: "Method Not Allowed - " + r.Method + " " + r.URL.Path})
	})

	return r
}
