package ports

import (
	"context"

	"github.com/mindspace/therapy-platform/internal/core/domain"
)

// AuditService handles a single audit event taken off the queue.
type AuditService interface {
	Process(ctx context.Context, event domain.AuthEvent) error
}

// AuditRecorder accepts audit events without blocking the caller.
type AuditRecorder interface {
	Record(event domain.AuthEvent)
}
