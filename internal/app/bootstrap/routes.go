// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"sync"

	communitiesfeature "github.com/dalemusser/carecommunity/internal/app/features/communities"
	healthfeature "github.com/dalemusser/carecommunity/internal/app/features/health"
	"github.com/dalemusser/carecommunity/internal/app/services/community"
	"github.com/dalemusser/carecommunity/internal/app/store/audit"
	"github.com/dalemusser/carecommunity/internal/app/system/auditlog"
	"github.com/dalemusser/carecommunity/internal/app/system/callerid"
	"github.com/dalemusser/carecommunity/internal/app/system/ratelimit"
	"github.com/dalemusser/carecommunity/internal/app/system/requestid"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

var (
	bgMu       sync.Mutex
	background []func()
)

// onShutdown registers a stop func run by Shutdown.
func onShutdown(stop func()) {
	bgMu.Lock()
	defer bgMu.Unlock()
	background = append(background, stop)
}

func stopBackground() {
	bgMu.Lock()
	defer bgMu.Unlock()
	for _, stop := range background {
		stop()
	}
	background = nil
}

// BuildHandler constructs the root router: request ids, panic recovery and
// caller resolution for every request, then /health and /communities.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	store := callerid.NewCookieStore(appCfg.SessionKey, appCfg.SessionDomain, secure)
	resolver := callerid.NewResolver(store, appCfg.SessionName, logger)

	auditLogger := auditlog.New(audit.New(deps.MongoDatabase), logger, appCfg.AuditLog)
	svc := community.NewForDB(deps.MongoDatabase, auditLogger, logger, appCfg.DefaultMessageLimit)

	var limiter *ratelimit.Limiter
	if appCfg.MessageRateLimit > 0 {
		limiter = ratelimit.New(appCfg.MessageRateLimit, appCfg.MessageRateWindow)
		onShutdown(limiter.Stop)
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(resolver.Middleware)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	communitiesHandler := communitiesfeature.NewHandler(svc, limiter, auditLogger, logger)
	r.Mount("/communities", communitiesfeature.Routes(communitiesHandler))

	logger.Info("routes mounted",
		zap.Int("message_rate_limit", appCfg.MessageRateLimit),
		zap.Duration("message_rate_window", appCfg.MessageRateWindow),
		zap.String("audit_log", appCfg.AuditLog))

	return r, nil
}
