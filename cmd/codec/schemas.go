package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chaincodec/internal/config"
	"chaincodec/internal/registry"
	"chaincodec/internal/registry/postgres"
)

func runSchemas(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSchemas(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Schemas == "" {
		return fmt.Errorf("schemas path is required")
	}

	reg, count, err := loadRegistry(cfg.Schemas)
	if err != nil {
		return err
	}
	summary := reg.Summary()

	logger.Info("schemas loaded",
		zap.String("path", cfg.Schemas),
		zap.Int("count", count),
	)

	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	if cfg.Out != "" {
		if err := os.WriteFile(cfg.Out, append(payload, '\n'), 0o644); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	} else {
		fmt.Println(string(payload))
	}

	if cfg.PgDSN != "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema table: %w", err)
		}
		if err := store.UpsertSchemas(ctx, summary); err != nil {
			return fmt.Errorf("sync schemas: %w", err)
		}
		logger.Info("schemas synced to postgres", zap.Int("count", count))
	}

	return nil
}

// loadRegistry loads schemas from a CSDL file or a directory of them.
func loadRegistry(path string) (*registry.Registry, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, fmt.Errorf("schemas path: %w", err)
	}

	reg := registry.New()
	if info.IsDir() {
		count, err := reg.LoadDirectory(path)
		if err != nil {
			return nil, 0, err
		}
		return reg, count, nil
	}
	count, err := reg.LoadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return reg, count, nil
}
