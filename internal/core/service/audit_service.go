package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService writing to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Process persists a single audit event.
func (s *auditService) Process(ctx context.Context, event domain.AuthEvent) error {
	if event.Kind == "" {
		return fmt.Errorf("process audit event: missing kind")
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		return fmt.Errorf("process audit event: %w", err)
	}

	s.log.Debug().
		Str("kind", string(event.Kind)).
		Str("principal_id", event.PrincipalID).
		Msg("audit event stored")

	return nil
}
