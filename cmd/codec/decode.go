package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chaincodec/internal/config"
	"chaincodec/internal/decoder"
	"chaincodec/internal/model"
	"chaincodec/internal/registry"
	"chaincodec/internal/registry/postgres"
	"chaincodec/internal/storage"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := resolveRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.NewJsonlWriter(cfg.Out)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.NewJsonlWriter(cfg.Errors)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Int("schemas", reg.Count()),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, decoded, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var raw model.RawLog
		if err := json.Unmarshal(line, &raw); err != nil {
			failed++
			writeFailure(errWriter, model.RawLog{}, err)
			continue
		}

		event, err := decoder.Decode(raw, reg)
		if err != nil {
			failed++
			writeFailure(errWriter, raw, err)
			continue
		}

		if err := outWriter.Write(event); err != nil {
			return err
		}
		decoded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("failed", failed),
	)

	return nil
}

// resolveRegistry builds the decode-side registry from whichever source
// is configured: CSDL files, a summary document, or Postgres.
func resolveRegistry(ctx context.Context, cfg config.DecodeConfig) (*registry.Registry, error) {
	switch {
	case cfg.Schemas != "":
		reg, _, err := loadRegistry(cfg.Schemas)
		return reg, err

	case cfg.Summary != "":
		payload, err := os.ReadFile(cfg.Summary)
		if err != nil {
			return nil, fmt.Errorf("read summary: %w", err)
		}
		var summary registry.Summary
		if err := json.Unmarshal(payload, &summary); err != nil {
			return nil, fmt.Errorf("parse summary: %w", err)
		}
		return registry.FromSummary(summary)

	case cfg.PgDSN != "":
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		summary, err := store.LoadSummary(ctx)
		if err != nil {
			return nil, fmt.Errorf("load summary: %w", err)
		}
		return registry.FromSummary(summary)

	default:
		return nil, fmt.Errorf("one of --schemas, --summary or --pg-dsn is required")
	}
}

func writeFailure(writer *storage.JsonlWriter, raw model.RawLog, err error) {
	topic0 := ""
	if len(raw.Topics) > 0 {
		topic0 = raw.Topics[0]
	}
	_ = writer.Write(model.DecodeFailure{
		ChainID:     raw.ChainID,
		BlockNumber: raw.BlockNumber,
		TxHash:      raw.TxHash,
		LogIndex:    raw.LogIndex,
		Address:     raw.Address,
		Topic0:      topic0,
		Error:       decoder.ErrorRecord(err),
	})
}
