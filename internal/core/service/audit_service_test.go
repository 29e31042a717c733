package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindspace/therapy-platform/internal/core/domain"
)

type stubAuditRepo struct {
	insertErr error
	inserted  []*domain.AuthEvent
}

func (r *stubAuditRepo) InsertEvent(_ context.Context, e *domain.AuthEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, e)
	return nil
}

func TestAuditService_Process_Stores(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop())

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := svc.Process(context.Background(), domain.AuthEvent{
		Kind:        domain.EventLoginSucceeded,
		PrincipalID: "p1",
		Email:       "a@x.com",
		At:          at,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(repo.inserted))
	}
	if got := repo.inserted[0]; got.Kind != domain.EventLoginSucceeded || !got.At.Equal(at) {
		t.Fatalf("unexpected stored event: %+v", got)
	}
}

func TestAuditService_Process_RejectsEmptyKind(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, zerolog.Nop())

	if err := svc.Process(context.Background(), domain.AuthEvent{}); err == nil {
		t.Fatalf("expected error for an event without kind")
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestAuditService_Process_InsertError(t *testing.T) {
	repo := &stubAuditRepo{insertErr: errors.New("write concern timeout")}
	svc := NewAuditService(repo, zerolog.Nop())

	err := svc.Process(context.Background(), domain.AuthEvent{Kind: domain.EventLogout})
	if !errors.Is(err, repo.insertErr) {
		t.Fatalf("expected wrapped insert error, got %v", err)
	}
}
