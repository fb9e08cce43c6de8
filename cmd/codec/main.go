package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "codec",
		Short:        "Schema-driven EVM log decoder",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	schemasCmd := &cobra.Command{
		Use:   "schemas",
		Short: "Load CSDL schemas and emit a registry summary",
		RunE:  runSchemas,
	}

	schemasCmd.Flags().String("schemas", "", "CSDL schema file or directory")
	schemasCmd.Flags().String("out", "", "write summary JSON here instead of stdout")
	schemasCmd.Flags().String("pg-dsn", "", "optional Postgres DSN to sync the summary to")
	schemasCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(schemasCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into structured events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("schemas", "", "CSDL schema file or directory")
	decodeCmd.Flags().String("summary", "", "registry summary JSON (alternative to --schemas)")
	decodeCmd.Flags().String("pg-dsn", "", "pull the registry summary from Postgres")
	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/decoded_events.jsonl", "output decoded events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
