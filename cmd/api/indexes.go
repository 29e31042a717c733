package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	mongodb "github.com/mindspace/therapy-platform/internal/infrastructure/db/mongo"
)

func newEnsureIndexesCmd(boot bootFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the unique and TTL indexes the service relies on",
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
			log.Info().Str("database", cfg.Mongo.Database).Msg("indexes ensured")
			return nil
		},
	}
}
