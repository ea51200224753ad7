// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds carecommunity-specific configuration. WAFFLE's CoreConfig
// covers ports, TLS, log level and the other framework settings.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie written by the identity service. Used only to read
	// the caller id.
	SessionKey    string
	SessionName   string
	SessionDomain string

	// Messaging
	MessageRateLimit    int           // posts per window per caller; 0 disables
	MessageRateWindow   time.Duration // window for MessageRateLimit
	DefaultMessageLimit int           // ListMessages page size when none is given

	// Audit logging mode: all, db, log or off
	AuditLog string
}
