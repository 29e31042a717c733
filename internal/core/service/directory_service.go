package service

import (
	"context"

	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DirectoryService lists principals for administrators.
type DirectoryService struct {
	repo ports.PrincipalRepository
}

var _ ports.DirectoryService = (*DirectoryService)(nil)

func NewDirectoryService(repo ports.PrincipalRepository) *DirectoryService {
	return &DirectoryService{repo: repo}
}

func (s *DirectoryService) ListPrincipals(ctx context.Context, offset, limit int) ([]*domain.Principal, int64, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	items, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Principal, 0, len(items))
	for _, p := range items {
		out = append(out, p.Sanitized())
	}
	return out, total, nil
}

func (s *DirectoryService) GetPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Sanitized(), nil
}
