// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/carecommunity/internal/app/services/community"
	"github.com/dalemusser/carecommunity/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for carecommunity.
// Each key can be set in a config file (mongo_uri), an environment variable
// (CARECOMMUNITY_MONGO_URI) or a flag (--mongo_uri).
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "care_community", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Session cookie shared with the identity service; only read here.
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must match the auth service)"},
	{Name: "session_name", Default: "care-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Messaging
	{Name: "message_rate_limit", Default: 30, Desc: "Messages a caller may post per window (0 disables)"},
	{Name: "message_rate_window", Default: "1m", Desc: "Message rate limit window (e.g., 1m, 30s)"},
	{Name: "default_message_limit", Default: community.DefaultMessageLimit, Desc: "Messages returned when no limit is given (max 200)"},

	// Audit logging
	{Name: "audit_log", Default: auditlog.ModeAll, Desc: "Community event logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// Precedence is flags > env > files > defaults; app keys use the
// CARECOMMUNITY_ prefix.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CARECOMMUNITY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		MessageRateLimit:    appValues.Int("message_rate_limit"),
		MessageRateWindow:   appValues.Duration("message_rate_window", time.Minute),
		DefaultMessageLimit: appValues.Int("default_message_limit"),

		AuditLog: appValues.String("audit_log"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig rejects configurations that would fail later at connect
// time or produce a limiter that never admits a message.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	if appCfg.MessageRateLimit < 0 {
		return fmt.Errorf("message_rate_limit must not be negative")
	}
	if appCfg.MessageRateLimit > 0 && appCfg.MessageRateWindow <= 0 {
		return fmt.Errorf("message_rate_window must be positive when message_rate_limit is set")
	}
	if appCfg.DefaultMessageLimit < 0 || appCfg.DefaultMessageLimit > community.MaxMessageLimit {
		return fmt.Errorf("default_message_limit must be between 0 and %d", community.MaxMessageLimit)
	}
	if coreCfg != nil && coreCfg.Env == "prod" && len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 bytes in prod")
	}
	return nil
}
