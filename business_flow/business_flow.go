package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/quote-core/logging"
	"github.com/amirphl/quote-core/utils"
	"go.uber.org/zap"
)

// requireTenant trims and checks the tenant of a request
func requireTenant(tenantID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", NewBusinessError("TENANT_REQUIRED", "Tenant is required", ErrTenantRequired)
	}
	return tenantID, nil
}

// actorOr returns actor, or the actor stored in ctx, or fallback
func actorOr(ctx context.Context, actor, fallback string) string {
	if strings.TrimSpace(actor) != "" {
		return actor
	}
	return utils.ActorFromContext(ctx, fallback)
}

// flowLogger returns logger enriched with request fields, or a no-op logger
func flowLogger(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logging.WithContext(ctx, logger)
}
