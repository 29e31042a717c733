package ports

import (
	"context"

	"github.com/mindspace/therapy-platform/internal/core/domain"
)

// AuditRepository persists the authentication audit trail.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}
