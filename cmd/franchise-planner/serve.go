package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KatTate/katalyst-franchise-planner/internal/engine"
	"github.com/KatTate/katalyst-franchise-planner/internal/server"
	"github.com/KatTate/katalyst-franchise-planner/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the plan API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := loadRuntime(flags)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()
			if address != "" {
				conf.Server.Address = address
			}

			db, err := store.OpenDB(conf.Server.DatabasePath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			handler := server.NewHandler(
				store.NewSQLitePlanRepo(db),
				engine.NewLinearProjector(logger, conf.Projection.Months),
				server.Options{
					Logger:      logger,
					MaxBodySize: conf.Server.BodySizeBytes(),
					Version:     version,
					BrandID:     conf.Brand.ID,
					Brand:       conf.BrandDefaults(),
				},
			)

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := server.ListenAndServe(ctx, conf.Server, handler, logger); err != nil {
				logger.Error("plan server failed",
					zap.String("op", "main.serve"),
					zap.Error(err),
				)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	return cmd
}

// contextOrBackground keeps RunE usable when Execute is called without a context.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
