// Package server assembles repositories, use cases and handlers into the
// HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/fekuna/vialtrack-service/internal/account"
	accountH "github.com/fekuna/vialtrack-service/internal/account/handler"
	accountRepoPkg "github.com/fekuna/vialtrack-service/internal/account/repository"
	accountUCPkg "github.com/fekuna/vialtrack-service/internal/account/usecase"
	"github.com/fekuna/vialtrack-service/internal/alert"
	alertH "github.com/fekuna/vialtrack-service/internal/alert/handler"
	alertUCPkg "github.com/fekuna/vialtrack-service/internal/alert/usecase"
	"github.com/fekuna/vialtrack-service/internal/audit"
	auditH "github.com/fekuna/vialtrack-service/internal/audit/handler"
	auditRepoPkg "github.com/fekuna/vialtrack-service/internal/audit/repository"
	auditUCPkg "github.com/fekuna/vialtrack-service/internal/audit/usecase"
	"github.com/fekuna/vialtrack-service/internal/auth"
	"github.com/fekuna/vialtrack-service/internal/discrepancy"
	discH "github.com/fekuna/vialtrack-service/internal/discrepancy/handler"
	discRepoPkg "github.com/fekuna/vialtrack-service/internal/discrepancy/repository"
	discUCPkg "github.com/fekuna/vialtrack-service/internal/discrepancy/usecase"
	"github.com/fekuna/vialtrack-service/internal/location"
	locH "github.com/fekuna/vialtrack-service/internal/location/handler"
	locRepoPkg "github.com/fekuna/vialtrack-service/internal/location/repository"
	locUCPkg "github.com/fekuna/vialtrack-service/internal/location/usecase"
	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
	"github.com/fekuna/vialtrack-service/internal/pkg/logger"
	"github.com/fekuna/vialtrack-service/internal/pkg/postgres"
	"github.com/fekuna/vialtrack-service/internal/pkg/transaction"
	"github.com/fekuna/vialtrack-service/internal/product"
	prodH "github.com/fekuna/vialtrack-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/vialtrack-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/vialtrack-service/internal/product/usecase"
	"github.com/fekuna/vialtrack-service/internal/provider"
	provH "github.com/fekuna/vialtrack-service/internal/provider/handler"
	provRepoPkg "github.com/fekuna/vialtrack-service/internal/provider/repository"
	provUCPkg "github.com/fekuna/vialtrack-service/internal/provider/usecase"
	"github.com/fekuna/vialtrack-service/internal/store/memory"
	"github.com/fekuna/vialtrack-service/internal/usage"
	usageH "github.com/fekuna/vialtrack-service/internal/usage/handler"
	usageRepoPkg "github.com/fekuna/vialtrack-service/internal/usage/repository"
	usageUCPkg "github.com/fekuna/vialtrack-service/internal/usage/usecase"
	"github.com/fekuna/vialtrack-service/internal/vial"
	vialH "github.com/fekuna/vialtrack-service/internal/vial/handler"
	vialRepoPkg "github.com/fekuna/vialtrack-service/internal/vial/repository"
	vialUCPkg "github.com/fekuna/vialtrack-service/internal/vial/usecase"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
)

// Repositories is one storage backend.
type Repositories struct {
	Tx            transaction.Manager
	Accounts      account.Repository
	Products      product.Repository
	Locations     location.Repository
	Providers     provider.Repository
	Vials         vial.Repository
	Usage         usage.Repository
	Audit         audit.Repository
	Discrepancies discrepancy.Repository
}

func PostgresRepositories(db *sqlx.DB, log logger.ZapLogger) Repositories {
	return Repositories{
		Tx:            postgres.NewTxManager(db, log),
		Accounts:      accountRepoPkg.NewPGRepository(db),
		Products:      prodRepoPkg.NewPGRepository(db),
		Locations:     locRepoPkg.NewPGRepository(db),
		Providers:     provRepoPkg.NewPGRepository(db),
		Vials:         vialRepoPkg.NewPGRepository(db),
		Usage:         usageRepoPkg.NewPGRepository(db),
		Audit:         auditRepoPkg.NewPGRepository(db),
		Discrepancies: discRepoPkg.NewPGRepository(db),
	}
}

func MemoryRepositories(s *memory.Store) Repositories {
	return Repositories{
		Tx:            memory.NewTxManager(s),
		Accounts:      s.Accounts(),
		Products:      s.Products(),
		Locations:     s.Locations(),
		Providers:     s.Providers(),
		Vials:         s.Vials(),
		Usage:         s.Usage(),
		Audit:         s.Audit(),
		Discrepancies: s.Discrepancies(),
	}
}

// Options carries the optional collaborators. Nil Cache, Publisher and
// Limiter disable dashboard caching, audit streaming and auth throttling.
type Options struct {
	Tokens    *auth.TokenManager
	Limiter   *httpx.RateLimiter
	Cache     alert.Cache
	CacheTTL  time.Duration
	Publisher audit.Publisher
	Logger    logger.ZapLogger
}

type registrar interface {
	Register(r *mux.Router)
}

// NewHandler builds every use case over repos and mounts them under /api.
func NewHandler(repos Repositories, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	// 1. Use cases
	auditUC := auditUCPkg.NewAuditUseCase(repos.Audit, opts.Publisher, log)
	alertUC := alertUCPkg.NewAlertUseCase(repos.Vials, repos.Products, repos.Usage, repos.Discrepancies, opts.Cache, opts.CacheTTL, log)

	accountUC := accountUCPkg.NewAccountUseCase(repos.Accounts, repos.Locations, opts.Tokens, repos.Tx, auditUC, log)
	prodUC := prodUCPkg.NewProductUseCase(repos.Products, repos.Tx, auditUC, alertUC, log)
	locUC := locUCPkg.NewLocationUseCase(repos.Locations, repos.Tx, auditUC, log)
	provUC := provUCPkg.NewProviderUseCase(repos.Providers, repos.Tx, auditUC, log)
	vialUC := vialUCPkg.NewVialUseCase(repos.Vials, repos.Products, repos.Locations, repos.Tx, auditUC, alertUC, log)
	usageUC := usageUCPkg.NewUsageUseCase(repos.Usage, repos.Vials, repos.Providers, repos.Tx, auditUC, alertUC, log)
	discUC := discUCPkg.NewDiscrepancyUseCase(repos.Discrepancies, repos.Vials, repos.Tx, auditUC, alertUC, log)

	// 2. Handlers
	handlers := []registrar{
		accountH.NewAccountHandler(accountUC, opts.Limiter),
		prodH.NewProductHandler(prodUC),
		locH.NewLocationHandler(locUC),
		provH.NewProviderHandler(provUC),
		vialH.NewVialHandler(vialUC),
		usageH.NewUsageHandler(usageUC),
		discH.NewDiscrepancyHandler(discUC),
		alertH.NewAlertHandler(alertUC),
		auditH.NewAuditHandler(auditUC),
	}

	// 3. Router
	r := mux.NewRouter()
	r.Use(httpx.RequestID, httpx.Logging(log), httpx.Recover(log))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteProblem(w, req, http.StatusNotFound, "route_not_found", "no route matches "+req.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteProblem(w, req, http.StatusMethodNotAllowed, "method_not_allowed", req.Method+" is not allowed on "+req.URL.Path)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth.NewMiddleware(opts.Tokens))
	api.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
	}).Methods(http.MethodGet)
	for _, h := range handlers {
		h.Register(api)
	}
	return r
}
