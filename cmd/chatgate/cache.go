package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	rediscache "github.com/chatgate/chatgate/pkg/cache/redis"
	sqlitecache "github.com/chatgate/chatgate/pkg/cache/sqlite"
	"github.com/chatgate/chatgate/pkg/config"
	"github.com/chatgate/chatgate/pkg/models"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the answer cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			stats, err := cacheStats(cfg)
			if err != nil {
				return err
			}
			fmt.Printf("Entries: %d\nHits:    %d\nMisses:  %d\nErrors:  %d\n",
				stats.Entries, stats.Hits, stats.Misses, stats.Errors)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Cache.Backend == "redis" {
				return fmt.Errorf("clear is only supported for the sqlite backend; redis entries expire via TTL")
			}
			c, err := sqlitecache.New(cfg.Cache.DBPath, cfg.Cache.TTL)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.Clear(expiredOnly); err != nil {
				return err
			}
			if expiredOnly {
				fmt.Println("Expired cache entries cleared.")
			} else {
				fmt.Println("All cache entries cleared.")
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

func cacheStats(cfg *config.Config) (models.CacheStats, error) {
	ctx := context.Background()
	if cfg.Cache.Backend == "redis" {
		c := rediscache.New(cfg.Cache.Redis, cfg.Cache.TTL)
		defer func() { _ = c.Close() }()
		return c.Stats(ctx)
	}
	c, err := sqlitecache.New(cfg.Cache.DBPath, cfg.Cache.TTL)
	if err != nil {
		return models.CacheStats{}, err
	}
	defer func() { _ = c.Close() }()
	return c.Stats(ctx)
}
