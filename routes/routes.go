package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"idealtransport/handlers"
	"idealtransport/metrics"
	"idealtransport/services"
)

// Options are the router settings taken from config.
type Options struct {
	RequestTimeout     time.Duration
	CORSOrigins        []string
	RateLimitPerMinute int
	BOLRequireAuth     bool
	Production         bool
	// Metrics, when set, instruments every route and serves /metrics.
	Metrics *metrics.Metrics
}

type Handlers struct {
	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	BOL          *handlers.BOLHandler
	Transactions *handlers.TransactionHandler
	Expenses     *handlers.ExpenseHandler
	Health       *handlers.HealthHandler
}

func NewRouter(opts Options, h Handlers, auth *services.AuthService, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        opts.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !opts.Production,
	})

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		opts.Metrics.Middleware,
		handlers.RequestLogger(logger),
		handlers.RecoverWrapper(logger),
		middleware.StripSlashes,
		cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		secureMiddleware.Handler,
		middleware.Timeout(timeout),
		middleware.Compress(5),
	)
	if opts.RateLimitPerMinute > 0 {
		r.Use(httprate.Limit(opts.RateLimitPerMinute, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
	}

	authenticate := handlers.Authenticate(auth, logger)

	r.Get("/", h.Health.Root)
	r.Get("/health", h.Health.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.With(authenticate).Get("/dashboard", h.Auth.Dashboard)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/token", h.Auth.Token)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/me", h.Auth.Me)

			r.Route("/users", func(r chi.Router) {
				r.Use(handlers.RequireAdmin(logger))
				r.Get("/", h.Users.List)
				r.Post("/", h.Users.Create)
				r.Get("/{id}", h.Users.Get)
				r.Put("/{id}", h.Users.Update)
				r.Delete("/{id}", h.Users.Delete)
			})
		})
	})

	r.Route("/bol", func(r chi.Router) {
		if opts.BOLRequireAuth {
			r.Use(authenticate)
		}
		r.Post("/", h.BOL.Create)
		r.Get("/", h.BOL.List)
		r.Get("/pending-payments", h.BOL.ListPending)
		r.Get("/work-order/{workOrderNo}/payment-status", h.BOL.PaymentStatus)
		r.Get("/{id}", h.BOL.Get)
		r.Put("/{id}", h.BOL.Update)
		r.Delete("/{id}", h.BOL.Delete)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/daily-expenses", func(r chi.Router) {
			r.Post("/", h.Expenses.Create)
			r.Get("/", h.Expenses.List)
			r.Get("/report.xlsx", h.Expenses.Report)
			r.Get("/{id}", h.Expenses.Get)
			r.Put("/{id}", h.Expenses.Update)
			r.Delete("/{id}", h.Expenses.Delete)
		})

		r.Post("/", h.Transactions.Create)
		r.Get("/", h.Transactions.List)
		r.Get("/report.xlsx", h.Transactions.Report)
		r.Get("/work-orders/pending", h.Transactions.PendingWorkOrders)
		r.Get("/work-order/{workOrderNo}/status", h.Transactions.WorkOrderStatus)
		r.Get("/work-order/{workOrderNo}/transactions", h.Transactions.WorkOrderTransactions)
		r.Get("/{id}", h.Transactions.Get)
		r.Put("/{id}", h.Transactions.Update)
		r.Delete("/{id}", h.Transactions.Delete)
	})

	return r
}
