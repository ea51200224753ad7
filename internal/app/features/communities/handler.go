// internal/app/features/communities/handler.go
package communities

import (
	"github.com/dalemusser/carecommunity/internal/app/services/community"
	"github.com/dalemusser/carecommunity/internal/app/system/auditlog"
	"github.com/dalemusser/carecommunity/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Handler serves the /communities JSON API on top of the community service.
type Handler struct {
	Svc   *community.Service
	Audit *auditlog.Logger
	Log   *zap.Logger

	// MessageLimiter throttles SendMessage per caller. Nil disables it.
	MessageLimiter *ratelimit.Limiter
}

func NewHandler(svc *community.Service, limiter *ratelimit.Limiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:            svc,
		Audit:          audit,
		Log:            logger,
		MessageLimiter: limiter,
	}
}
