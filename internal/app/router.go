package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/salesdesk/salesdesk/internal/api"
	audithttp "github.com/salesdesk/salesdesk/internal/audit/http"
	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/dashboard"
	"github.com/salesdesk/salesdesk/internal/masterdata/categories"
	"github.com/salesdesk/salesdesk/internal/masterdata/products"
	"github.com/salesdesk/salesdesk/internal/masterdata/suppliers"
	"github.com/salesdesk/salesdesk/internal/observability"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/sales/customers"
	"github.com/salesdesk/salesdesk/internal/sales/orders"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/users"
	"github.com/salesdesk/salesdesk/internal/warehouse"
	"github.com/salesdesk/salesdesk/jobs"
	"github.com/salesdesk/salesdesk/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Auth           session.Authenticator
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler       *auth.Handler
	DashboardHandler  *dashboard.Handler
	ProductsHandler   *products.Handler
	CategoriesHandler *categories.Handler
	SuppliersHandler  *suppliers.Handler
	CustomersHandler  *customers.Handler
	OrdersHandler     *orders.Handler
	UsersHandler      *users.Handler
	WarehouseHandler  *warehouse.Handler
	JobHandler        *jobs.Handler
	AuditHandler      *audithttp.Handler
}

// NewRouter constructs the console router. Health, metrics and static assets
// sit outside the session chain; every page sits inside it.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	mwConfig := MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Auth:           params.Auth,
		Metrics:        params.Metrics,
	}

	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(mwConfig) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		for _, mw := range ConsoleStack(mwConfig) {
			r.Use(mw)
		}
		mountConsole(r, params)
	})
	return r
}

func mountConsole(r chi.Router, params RouterParams) {
	guard := params.RBACMiddleware

	if h := params.AuthHandler; h != nil {
		r.Route("/auth", h.MountRoutes)
		r.Get("/403", h.Forbidden)
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAuthenticated())
			r.Route("/profile", h.MountProfileRoutes)
		})
	}
	if h := params.DashboardHandler; h != nil {
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAuthenticated())
			r.Get("/", h.Home)
		})
	}
	if h := params.ProductsHandler; h != nil {
		r.Route("/products", h.MountRoutes)
	}
	if h := params.CategoriesHandler; h != nil {
		r.Route("/categories", h.MountRoutes)
	}
	if h := params.SuppliersHandler; h != nil {
		r.Route("/suppliers", h.MountRoutes)
	}
	if h := params.CustomersHandler; h != nil {
		h.MountRoutes(r)
	}
	if h := params.OrdersHandler; h != nil {
		h.MountRoutes(r)
	}
	if h := params.UsersHandler; h != nil {
		r.Route("/users", h.MountRoutes)
	}
	if h := params.WarehouseHandler; h != nil {
		r.Route("/warehouse", h.MountRoutes)
	}
	if h := params.AuditHandler; h != nil {
		r.Route("/audit", h.MountRoutes)
	}
	if h := params.JobHandler; h != nil {
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireRoles(api.RoleAdmin))
			r.Route("/jobs", h.MountRoutes)
		})
	}
}

// staticCacheHandler lets browsers keep assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
