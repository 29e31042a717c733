package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
	"github.com/mindspace/therapy-platform/internal/core/security"
	"github.com/mindspace/therapy-platform/internal/core/service"
	mongodb "github.com/mindspace/therapy-platform/internal/infrastructure/db/mongo"
)

func newCreateAdminCmd(boot bootFunc) *cobra.Command {
	var email, password, username string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Register an admin principal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := boot(cmd)
			if err != nil {
				return err
			}

			client, db, err := mongodb.Connect(cmd.Context(), mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(ctx)
			}()
			if err := mongodb.EnsureIndexes(cmd.Context(), db); err != nil {
				return err
			}

			tokens, err := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			auth := service.NewAuthService(
				mongodb.NewPrincipalRepository(db),
				security.NewBcryptHasher(cfg.Auth.BcryptCost),
				tokens,
				nil,
				syncRecorder{
					ctx: cmd.Context(),
					svc: service.NewAuditService(mongodb.NewAuditRepository(db), log),
					log: log,
				},
				log,
			)

			p, err := auth.CreateAdmin(cmd.Context(), ports.SignupInput{
				Email:    email,
				Password: password,
				Username: username,
			})
			if err != nil {
				return fmt.Errorf("create-admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (%s)\n", p.Email, p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "admin email (required)")
	cmd.Flags().StringVar(&password, "password", "", "admin password (required)")
	cmd.Flags().StringVar(&username, "username", "", "admin username, defaults to the email")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	cmd.PreRunE = func(*cobra.Command, []string) error {
		if len(password) < 6 {
			return errors.New("create-admin: password must be at least 6 characters")
		}
		return nil
	}
	return cmd
}

// syncRecorder writes audit events inline; the CLI has no worker pool.
type syncRecorder struct {
	ctx context.Context
	svc ports.AuditService
	log zerolog.Logger
}

func (r syncRecorder) Record(event domain.AuthEvent) {
	if err := r.svc.Process(r.ctx, event); err != nil {
		r.log.Error().Err(err).
			Str("kind", string(event.Kind)).
			Str("principal_id", event.PrincipalID).
			Msg("audit event processing failed")
	}
}
