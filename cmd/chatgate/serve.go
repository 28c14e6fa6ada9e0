package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chatgate/chatgate/pkg/audit"
	"github.com/chatgate/chatgate/pkg/cache"
	rediscache "github.com/chatgate/chatgate/pkg/cache/redis"
	sqlitecache "github.com/chatgate/chatgate/pkg/cache/sqlite"
	"github.com/chatgate/chatgate/pkg/gateway"
	"github.com/chatgate/chatgate/pkg/ratelimit"
	"github.com/chatgate/chatgate/pkg/upstream"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			var store cache.Store
			switch cfg.Cache.Backend {
			case "redis":
				store = rediscache.New(cfg.Cache.Redis, cfg.Cache.TTL)
			case "", "sqlite":
				store, err = sqlitecache.New(cfg.Cache.DBPath, cfg.Cache.TTL)
				if err != nil {
					return fmt.Errorf("init cache: %w", err)
				}
			default:
				return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
			}
			defer func() { _ = store.Close() }()

			auditor, err := audit.New(cfg.Audit)
			if err != nil {
				return fmt.Errorf("init audit log: %w", err)
			}
			defer func() { _ = auditor.Close() }()

			limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
			gen := upstream.NewClient(cfg.Upstream)

			srv := gateway.New(cfg, store, limiter, gen, auditor)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Printf("starting chatgate (cache backend: %s, rate limit: %d/%s)",
				cfg.Cache.Backend, cfg.RateLimit.Requests, cfg.RateLimit.Window)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}
