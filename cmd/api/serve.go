package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindspace/therapy-platform/internal/api"
	"github.com/mindspace/therapy-platform/internal/core/security"
	"github.com/mindspace/therapy-platform/internal/core/service"
	mongodb "github.com/mindspace/therapy-platform/internal/infrastructure/db/mongo"
	redisdb "github.com/mindspace/therapy-platform/internal/infrastructure/db/redis"
	httpserver "github.com/mindspace/therapy-platform/internal/infrastructure/http"
	"github.com/mindspace/therapy-platform/internal/infrastructure/http/handlers"
	"github.com/mindspace/therapy-platform/internal/infrastructure/queue"
	"github.com/mindspace/therapy-platform/pkg/logger"
)

func newServeCmd(boot bootFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := boot(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
				URI:      cfg.Mongo.URI,
				Database: cfg.Mongo.Database,
				AppName:  "therapy-auth",
			})
			if err != nil {
				return err
			}
			defer func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = mongoClient.Disconnect(disconnectCtx)
			}()

			if err := mongodb.EnsureIndexes(ctx, db); err != nil {
				return err
			}

			rdb, err := redisdb.Connect(ctx, redisdb.Config{
				Addr:      cfg.Redis.Addr,
				Password:  cfg.Redis.Password,
				DB:        cfg.Redis.DB,
				PoolSize:  cfg.Redis.PoolSize,
				OpTimeout: cfg.Redis.OpTimeout,
			})
			if err != nil {
				return err
			}
			defer rdb.Close()

			tokens, err := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			auditService := service.NewAuditService(mongodb.NewAuditRepository(db), logger.Component("audit"))
			dispatcher := queue.NewDispatcher(cfg.Audit.Workers, cfg.Audit.BufferSize, auditService, logger.Component("dispatcher"))
			dispatcher.Start(ctx)
			defer dispatcher.Close()

			principals := mongodb.NewPrincipalRepository(db)
			authService := service.NewAuthService(
				principals,
				security.NewBcryptHasher(cfg.Auth.BcryptCost),
				tokens,
				redisdb.NewDenylist(rdb, redisdb.WithKeyPrefix(cfg.Redis.KeyPrefix)),
				dispatcher,
				logger.Component("auth"),
			)

			router := api.NewRouter(api.Deps{
				Auth:           authService,
				Directory:      service.NewDirectoryService(principals),
				Checks:         []handlers.DependencyCheck{handlers.MongoCheck(db), handlers.RedisCheck(rdb)},
				Log:            log,
				RateLimitRPS:   cfg.RateLimit.RPS,
				RateLimitBurst: cfg.RateLimit.Burst,
			})

			log.Info().
				Str("env", cfg.Env).
				Dur("token_ttl", cfg.Auth.TokenTTL).
				Int("audit_workers", cfg.Audit.Workers).
				Msg("starting therapy auth api")

			return httpserver.NewServer(router, cfg.Port, log).Run(ctx, cfg.ShutdownTimeout)
		},
	}
}
