package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	pbcfg "posbook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContracts = `
contracts:
  - instrument_id: "600000"
    exchange_id: SSE
    type: stock
  - instrument_id: rb2610
    exchange_id: SHFE
    type: future
    contract_multiplier: 10
    margin_ratio: 0.1
`

func testConfig(t *testing.T, dir, replayPath string) *pbcfg.Config {
	t.Helper()
	contractPath := filepath.Join(dir, "contracts.yaml")
	require.NoError(t, os.WriteFile(contractPath, []byte(testContracts), 0o644))
	return &pbcfg.Config{
		App: pbcfg.AppConfig{
			Env:      "test",
			LogLevel: "warn",
			HTTPAddr: "127.0.0.1:0",
		},
		Store: pbcfg.StoreConfig{
			SnapshotPath: filepath.Join(dir, "snapshots.db"),
			JournalPath:  filepath.Join(dir, "journal.db"),
		},
		Feed:        pbcfg.FeedConfig{ReplayPath: replayPath},
		Instruments: pbcfg.InstrumentsConfig{ContractTablePath: contractPath},
		Accounts: []pbcfg.AccountConfig{
			{ID: "acc-1", StartingAvail: 100_000, TradingDay: "2026-01-05"},
		},
	}
}

func TestBuild_ReplayAndRecover(t *testing.T) {
	dir := t.TempDir()
	feedPath := filepath.Join(dir, "events.jsonl")
	feedLine := `{"type":"trade","account":"acc-1","data":{"instrument_id":"600000","exchange_id":"SSE","side":"buy","price":10,"volume":100}}` + "\n"
	require.NoError(t, os.WriteFile(feedPath, []byte(feedLine), 0o644))

	cfg := testConfig(t, dir, feedPath)
	application, err := NewAppBuilder(cfg).Build(context.Background())
	require.NoError(t, err)

	application.accounts.StartAll()
	stats, err := application.replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Applied)

	snap, err := application.accounts.Snapshot("acc-1")
	require.NoError(t, err)
	require.Len(t, snap.Positions, 1)
	assert.InDelta(t, 100, snap.Positions[0].Volume, 1e-9)
	assert.InDelta(t, 99_000, snap.Ledger.Avail, 1e-9)

	application.accounts.StopAll()
	application.closeStores()

	// A fresh build over the same stores picks the book back up.
	cfg2 := testConfig(t, dir, "")
	restored, err := NewAppBuilder(cfg2).Build(context.Background())
	require.NoError(t, err)
	defer restored.closeStores()
	assert.Nil(t, restored.replayer)

	snap, err = restored.accounts.Snapshot("acc-1")
	require.NoError(t, err)
	require.Len(t, snap.Positions, 1)
	assert.InDelta(t, 100, snap.Positions[0].Volume, 1e-9)
	assert.InDelta(t, 10, snap.Positions[0].AvgOpenPrice, 1e-9)
	assert.InDelta(t, 99_000, snap.Ledger.Avail, 1e-9)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir, "")
	application, err := NewApp(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, application.Run(ctx))
}

func TestNewApp_RejectsNilConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)
}
