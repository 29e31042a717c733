package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mindspace/therapy-platform/internal/infrastructure/config"
	"github.com/mindspace/therapy-platform/pkg/logger"
)

// @title       Therapy Platform Auth API
// @version     1.0
// @description Signup, login and bearer-token verification for users, psychologists and admins.
// @BasePath    /
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "therapy-api",
		Short:         "Authentication service for the therapy platform",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")

	boot := func(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
		cfg, err := config.Load(cmd.Context(), envFile)
		if err != nil {
			return nil, zerolog.Nop(), err
		}
		log := logger.Init(logger.Options{
			Level:   cfg.LogLevel,
			Pretty:  cfg.LogPretty,
			Service: "therapy-auth",
		})
		return cfg, log, nil
	}

	root.AddCommand(
		newServeCmd(boot),
		newEnsureIndexesCmd(boot),
		newCreateAdminCmd(boot),
	)
	return root
}

type bootFunc func(cmd *cobra.Command) (*config.Config, zerolog.Logger, error)
