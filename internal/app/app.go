// Package app wires configuration, stores, account actors, the feed, and
// the HTTP surface into one runnable process.
package app

import (
	"context"
	"fmt"

	"posbook/internal/account"
	pbcfg "posbook/internal/config"
	"posbook/internal/feed"
	"posbook/internal/instrument"
	"posbook/internal/logger"
	"posbook/internal/store/gormstore"
	"posbook/internal/store/journal"
	apihttp "posbook/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

// App holds the assembled process. Build it with NewApp, then Run it.
type App struct {
	cfg *pbcfg.Config

	accounts  *account.Manager
	registry  *instrument.Registry
	journal   *journal.Store
	snapshots *gormstore.GormStore
	replayer  *feed.Replayer
	apiServer *apihttp.Server
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *pbcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Accounts exposes the account manager, for tests and replay harnesses.
func (a *App) Accounts() *account.Manager {
	if a == nil {
		return nil
	}
	return a.accounts
}

// Run starts the actors, replays the configured feed, and serves the query
// API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	a.accounts.StartAll()
	defer a.accounts.StopAll()
	defer a.closeStores()

	group, ctx := errgroup.WithContext(ctx)

	if a.apiServer != nil {
		group.Go(func() error {
			logger.Infof("query api listening on %s", a.apiServer.Addr())
			if err := a.apiServer.Start(ctx); err != nil {
				return fmt.Errorf("query api server error: %w", err)
			}
			return nil
		})
	}

	if a.replayer != nil {
		group.Go(func() error {
			stats, err := a.replayer.Run(ctx)
			if err != nil {
				return fmt.Errorf("feed replay error: %w", err)
			}
			logger.Infof("feed replay done applied=%d rejected=%d invalid=%d",
				stats.Applied, stats.Rejected, stats.Invalid)
			return nil
		})
	}

	return group.Wait()
}

func (a *App) closeStores() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Warnf("journal close failed: %v", err)
		}
	}
	if a.snapshots != nil {
		if err := a.snapshots.Close(); err != nil {
			logger.Warnf("snapshot store close failed: %v", err)
		}
	}
}
