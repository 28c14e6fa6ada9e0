package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chatgate/chatgate/pkg/config"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "chatgate",
		Short:   "chatgate — caching, rate-limited gateway for LLM chat queries",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newAuditCmd(),
		newCacheCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig returns defaults when no config file is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
