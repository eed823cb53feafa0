package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/salesdesk/salesdesk/internal/api"
	"github.com/salesdesk/salesdesk/internal/audit"
	audithttp "github.com/salesdesk/salesdesk/internal/audit/http"
	"github.com/salesdesk/salesdesk/internal/auth"
	"github.com/salesdesk/salesdesk/internal/cart"
	"github.com/salesdesk/salesdesk/internal/dashboard"
	"github.com/salesdesk/salesdesk/internal/masterdata/categories"
	"github.com/salesdesk/salesdesk/internal/masterdata/products"
	"github.com/salesdesk/salesdesk/internal/masterdata/suppliers"
	"github.com/salesdesk/salesdesk/internal/observability"
	"github.com/salesdesk/salesdesk/internal/platform/cache"
	"github.com/salesdesk/salesdesk/internal/platform/db"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/report"
	"github.com/salesdesk/salesdesk/internal/sales/customers"
	"github.com/salesdesk/salesdesk/internal/sales/orders"
	"github.com/salesdesk/salesdesk/internal/session"
	"github.com/salesdesk/salesdesk/internal/shared"
	"github.com/salesdesk/salesdesk/internal/uploads"
	"github.com/salesdesk/salesdesk/internal/users"
	"github.com/salesdesk/salesdesk/internal/view"
	"github.com/salesdesk/salesdesk/internal/warehouse"
	"github.com/salesdesk/salesdesk/jobs"
)

// Console is the assembled web console.
type Console struct {
	Handler http.Handler
	Metrics *observability.Metrics
	API     *api.Client
	Redis   *redis.Client
	Pool    *pgxpool.Pool

	inspector *asynq.Inspector
}

// NewConsole connects Redis (and the ledger database when configured) and
// wires every screen behind the router.
func NewConsole(ctx context.Context, cfg *Config, logger *slog.Logger) (*Console, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Console{Metrics: observability.NewMetrics()}

	rdb, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		return nil, err
	}
	c.Redis = rdb

	var (
		recorder    shared.AuditRecorder = shared.NewSlogAuditLogger(logger)
		idempotency shared.IdempotencyGuard
	)
	activity := audit.NewService(nil)
	if cfg.LedgerPGDSN != "" {
		pool, err := db.New(ctx, cfg.LedgerPGDSN)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Pool = pool
		if err := db.MigrateLedger(ctx, pool); err != nil {
			c.Close()
			return nil, err
		}
		recorder = shared.NewAuditLogger(pool)
		idempotency = shared.NewIdempotencyStore(pool)
		activity = audit.NewService(audit.NewRepository(pool))
	} else {
		idempotency = shared.NewRedisIdempotencyStore(rdb, cfg.IdempotencyRetention)
	}

	client, err := api.New(cfg.APIBaseURL,
		api.WithCredentials(session.Credentials),
		api.WithObserver(c.Metrics),
		api.WithLogger(logger),
		api.WithTimeout(cfg.APITimeout),
	)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.API = client

	uploader, err := newUploader(ctx, cfg, client)
	if err != nil {
		c.Close()
		return nil, err
	}

	menu, err := rbac.DefaultMenu()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("app: menu: %w", err)
	}
	engine, err := view.NewEngine()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("app: templates: %w", err)
	}

	sessions := shared.NewSessionManager(rdb, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)
	pages := view.NewResponder(engine, csrf, menu, logger)
	guard := rbac.Middleware{Policy: rbac.NewPolicy(menu)}
	carts := cart.NewRedisStore(rdb, cfg.CartTTL)
	dash := dashboard.NewService(client, dashboard.NewCache(rdb, cfg.DashboardCacheTTL), cfg.LowStockThreshold, logger)
	c.inspector = asynq.NewInspector(cfg.Redis().AsynqOpt())

	var invoices orders.InvoicePrinter
	if cfg.GotenbergURL != "" {
		inv, err := report.NewInvoices(report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout), cfg.ShopName)
		if err != nil {
			c.Close()
			return nil, err
		}
		invoices = inv
	}

	c.Handler = NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Auth:           client,
		RBACMiddleware: guard,
		Metrics:        c.Metrics,

		AuthHandler:       auth.NewHandler(logger, pages, sessions, carts),
		DashboardHandler:  dashboard.NewHandler(logger, dash, pages),
		ProductsHandler:   products.NewHandler(logger, client, uploader, pages, guard, recorder, cfg.LowStockThreshold),
		CategoriesHandler: categories.NewHandler(logger, client, pages, guard, recorder),
		SuppliersHandler:  suppliers.NewHandler(logger, client, pages, guard, recorder),
		CustomersHandler:  customers.NewHandler(logger, client, pages, guard, recorder),
		OrdersHandler: orders.NewHandler(orders.Deps{
			Logger:      logger,
			Backend:     client,
			Carts:       carts,
			Pages:       pages,
			RBAC:        guard,
			Idempotency: idempotency,
			Audit:       recorder,
			Observer:    c.Metrics,
			Invoices:    invoices,
		}),
		UsersHandler:     users.NewHandler(logger, client, pages, guard, recorder),
		WarehouseHandler: warehouse.NewHandler(logger, client, pages, guard, recorder),
		JobHandler:       jobs.NewHandler(c.inspector, logger),
		AuditHandler:     audithttp.NewHandler(logger, activity, pages, guard, cfg.WorkerLocation()),
	})
	return c, nil
}

func newUploader(ctx context.Context, cfg *Config, client *api.Client) (uploads.Uploader, error) {
	switch cfg.UploadDriver {
	case "", UploadDriverBackend:
		return uploads.NewBackend(client), nil
	case UploadDriverS3:
		return uploads.NewS3(ctx, cfg.S3())
	default:
		return nil, fmt.Errorf("app: unknown upload driver %q", cfg.UploadDriver)
	}
}

// Server wraps the console in a traced http.Server.
func (c *Console) Server(cfg *Config) *http.Server {
	return &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      otelhttp.NewHandler(c.Handler, "salesdesk"),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}
}

// Close releases connections opened by NewConsole.
func (c *Console) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
	return errors.Join(errs...)
}
