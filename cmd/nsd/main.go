package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/nslisting/internal/config"
	"github.com/danmuck/nslisting/internal/logging"
	"github.com/danmuck/nslisting/internal/namespace"
	"github.com/danmuck/nslisting/internal/observability"
	"github.com/danmuck/nslisting/internal/protocol/protocols"
	"github.com/danmuck/nslisting/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nsd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "nsd",
		Short:         "nsd - namespace listing service",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to nsd TOML config (defaults apply when empty)")
	return cmd
}

func loadConfig(path string) (config.ServerConfig, error) {
	if path == "" {
		return config.DefaultServerConfig(), nil
	}
	return config.LoadServerConfig(path)
}

func run(ctx context.Context, cfg config.ServerConfig) error {
	logger := observability.InitLogger(cfg.ID)
	applyLogLevel(cfg.LogLevel)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	srv := server.New(cfg, store)
	log.Info().
		Str("id", cfg.ID).
		Str("store", cfg.Store).
		Str("protocol", cfg.Protocol).
		Msg("nsd started")
	return srv.Serve(ctx)
}

// applyLogLevel prefers the environment over the config file.
func applyLogLevel(fromConfig string) {
	raw := os.Getenv(logging.EnvLogLevel)
	if raw == "" {
		raw = fromConfig
	}
	if lvl, ok := logging.ParseLevel(raw); ok {
		zerolog.SetGlobalLevel(lvl)
	}
}

// openStore builds the configured backend and creates the seed namespaces.
func openStore(ctx context.Context, cfg config.ServerConfig, logger zerolog.Logger) (*namespace.Store, error) {
	codec, err := protocols.Lookup(cfg.Protocol)
	if err != nil {
		return nil, err
	}

	var backend namespace.Backend
	switch cfg.Store {
	case config.StorePebble:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		b, err := namespace.OpenPebbleBackend(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		backend = namespace.NewMemoryBackend()
	}

	store := namespace.NewStore(backend, logger,
		namespace.WithCodec(codec),
		namespace.WithLimits(cfg.Limits.Protocol()),
	)
	for _, ns := range cfg.Namespaces {
		if err := store.MkdirAll(ctx, ns); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("seed namespace %s: %w", ns, err)
		}
	}
	return store, nil
}
