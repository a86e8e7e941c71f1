package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/catalogapi/internal/domain"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(_ context.Context, p domain.Principal, action, resource, status, details string) {
	customerID := int64(0)
	if p.CustomerID != nil {
		customerID = *p.CustomerID
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.Int64("user_id", p.UserID),
		slog.String("role", string(p.Role)),
		slog.Int64("customer_id", customerID),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogWrite(ctx context.Context, p domain.Principal, action, resource string, id int64, status string) {
	al.LogAction(ctx, p, action, resource, status, fmt.Sprintf("id=%d", id))
}

func (al *Logger) LogDenied(ctx context.Context, p domain.Principal, resource, reason string) {
	al.LogAction(ctx, p, "access_denied", resource, "denied", reason)
}
