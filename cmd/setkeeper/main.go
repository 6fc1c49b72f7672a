// Command setkeeper performs bulk maintenance on a photo account: grouping
// photos into sets by machine-tag keys, bulk tagging, and refreshing managed
// description blocks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"setkeeper/internal/config"
	"setkeeper/internal/logging"
	"setkeeper/internal/reconcile"
	"setkeeper/internal/remote/flickrapi"
	"setkeeper/internal/store"
)

var (
	// Global flags
	cfgPath string
	verbose bool
	dryRun  bool
	timeout time.Duration

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "setkeeper",
	Short: "Bulk maintenance for a photo account's sets, tags and descriptions",
	Long: `setkeeper reconciles a photo account against its machine tags.

It derives grouping keys from machine tags (taxonomic order, family, capture
date), creates the matching sets, fills their membership, and maintains
delimited description blocks without touching user-authored text.

Every run is idempotent: rerunning after a partial failure finishes the
remainder without duplicating anything.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.JSON, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: ~/.setkeeper/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Log intended mutations without performing them")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Abort the command after this duration (0: no limit)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(setsCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(describeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext returns a context cancelled by SIGINT/SIGTERM and, when
// --timeout is set, by the deadline.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// buildEngine wires the remote client, optional collection cache and engine
// from the loaded config. The returned cleanup closes the cache.
func buildEngine() (*reconcile.Engine, func(), error) {
	svc, err := flickrapi.New(flickrapi.Config{
		APIKey:           cfg.API.Key,
		APISecret:        cfg.API.Secret,
		OAuthToken:       cfg.API.OAuthToken,
		OAuthTokenSecret: cfg.API.OAuthTokenSecret,
		UserID:           cfg.API.UserID,
	}, logging.Named(logger, "flickr"))
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var cache *store.Cache
	if cfg.Cache.Enabled {
		cache, err = store.Open(cfg.Cache.Path)
		if err != nil {
			logger.Warn("collection cache unavailable, continuing without", zap.Error(err))
		} else {
			cleanup = func() { _ = cache.Close() }
		}
	}

	eng, err := reconcile.NewEngine(reconcile.EngineConfig{
		Service:    svc,
		Log:        logger,
		Policy:     cfg.Retry.Policy(),
		Breaker:    cfg.Retry.Breaker,
		PageSize:   cfg.Paging.PageSize,
		Predicates: cfg.Keys.Predicates,
		Patterns:   cfg.Keys.Patterns,
		Cache:      cache,
		DryRun:     dryRun,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}
