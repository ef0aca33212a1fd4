package app

import (
	"context"
	"fmt"
	"strings"

	"posbook/internal/account"
	pbcfg "posbook/internal/config"
	"posbook/internal/feed"
	"posbook/internal/instrument"
	"posbook/internal/ledger"
	"posbook/internal/logger"
	"posbook/internal/store/gormstore"
	"posbook/internal/store/journal"
	apihttp "posbook/internal/transport/http"
	ptypes "posbook/internal/types"

	"github.com/shopspring/decimal"
)

// AppBuilder assembles an App step by step. The Fn hooks let tests swap a
// stage without standing up the real stores.
type AppBuilder struct {
	cfg *pbcfg.Config

	journalFn   func(pbcfg.StoreConfig) (*journal.Store, error)
	snapshotsFn func(pbcfg.StoreConfig) (*gormstore.GormStore, error)
	registryFn  func(pbcfg.InstrumentsConfig) (*instrument.Registry, error)
	apiServerFn func(pbcfg.AppConfig, *account.Manager, *journal.Store) (*apihttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *pbcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:         cfg,
		journalFn:   openJournal,
		snapshotsFn: openSnapshotStore,
		registryFn:  buildRegistry,
		apiServerFn: buildAPIServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	journalStore, err := b.journalFn(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open journal failed: %w", err)
	}
	snapshots, err := b.snapshotsFn(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store failed: %w", err)
	}
	registry, err := b.registryFn(cfg.Instruments)
	if err != nil {
		return nil, fmt.Errorf("load contract table failed: %w", err)
	}
	logger.Infof("contract table loaded, %d specs", len(registry.Snapshot().Specs))

	accounts, err := buildAccounts(cfg.Accounts, registry, journalStore, snapshots)
	if err != nil {
		return nil, err
	}

	var replayer *feed.Replayer
	if strings.TrimSpace(cfg.Feed.ReplayPath) != "" {
		replayer, err = feed.NewReplayer(cfg.Feed.ReplayPath, accounts)
		if err != nil {
			return nil, fmt.Errorf("build replayer failed: %w", err)
		}
	}

	apiServer, err := b.apiServerFn(cfg.App, accounts, journalStore)
	if err != nil {
		return nil, fmt.Errorf("build query api failed: %w", err)
	}

	return &App{
		cfg:       cfg,
		accounts:  accounts,
		registry:  registry,
		journal:   journalStore,
		snapshots: snapshots,
		replayer:  replayer,
		apiServer: apiServer,
	}, nil
}

// buildAccounts seeds one actor per configured account, recovering state
// from the snapshot store when a prior run left one.
func buildAccounts(
	accounts []pbcfg.AccountConfig,
	registry *instrument.Registry,
	journalStore *journal.Store,
	snapshots *gormstore.GormStore,
) (*account.Manager, error) {
	manager := account.NewManager()
	for _, acc := range accounts {
		led := ledger.New(acc.ID, decimal.NewFromFloat(acc.StartingAvail))

		var saved *ptypes.AccountSnapshot
		if snapshots != nil {
			snap, ok, err := snapshots.LoadAccount(acc.ID)
			if err != nil {
				return nil, fmt.Errorf("account %s: load snapshot failed: %w", acc.ID, err)
			}
			if ok {
				saved = &snap
				led = ledger.Restore(acc.ID,
					decimal.NewFromFloat(snap.Ledger.Avail),
					decimal.NewFromFloat(snap.Ledger.RealizedPnL))
			}
		}

		actor, err := account.NewActor(account.Config{
			AccountID:  acc.ID,
			TradingDay: acc.TradingDay,
			Ledger:     led,
			Registry:   registry,
			Journal:    journalStore,
			Store:      snapshots,
		})
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", acc.ID, err)
		}
		if saved != nil {
			if err := actor.RestoreFromSnapshot(*saved); err != nil {
				return nil, fmt.Errorf("account %s: restore failed: %w", acc.ID, err)
			}
			logger.Infof("account %s restored from snapshot, %d positions, trading day %s",
				acc.ID, len(saved.Positions), saved.TradingDay)
		}
		manager.Register(actor)
	}
	return manager, nil
}

func openJournal(cfg pbcfg.StoreConfig) (*journal.Store, error) {
	return journal.Open(cfg.JournalPath)
}

func openSnapshotStore(cfg pbcfg.StoreConfig) (*gormstore.GormStore, error) {
	return gormstore.NewGormStore(cfg.SnapshotPath)
}

func buildRegistry(cfg pbcfg.InstrumentsConfig) (*instrument.Registry, error) {
	if cfg.Watch {
		return instrument.NewRegistry(cfg.ContractTablePath)
	}
	specs, err := instrument.LoadSpecs(cfg.ContractTablePath)
	if err != nil {
		return nil, err
	}
	return instrument.NewStaticRegistry(specs), nil
}

func buildAPIServer(cfg pbcfg.AppConfig, accounts *account.Manager, logs *journal.Store) (*apihttp.Server, error) {
	return apihttp.NewServer(apihttp.ServerConfig{
		Addr:     cfg.HTTPAddr,
		Accounts: accounts,
		Journal:  logs,
	})
}
