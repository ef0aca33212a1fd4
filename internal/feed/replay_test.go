package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"posbook/internal/account"
	"posbook/internal/instrument"
	"posbook/internal/ledger"
	"posbook/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *account.Manager {
	t.Helper()
	registry := instrument.NewStaticRegistry([]instrument.Spec{
		{InstrumentID: "600000", ExchangeID: "SSE", InstrumentType: types.InstrumentStock},
		{
			InstrumentID:       "rb2610",
			ExchangeID:         "SHFE",
			InstrumentType:     types.InstrumentFuture,
			ContractMultiplier: decimal.NewFromInt(10),
			MarginRatio:        decimal.NewFromFloat(0.1),
		},
	})
	actor, err := account.NewActor(account.Config{
		AccountID:  "acc-1",
		TradingDay: "2026-01-05",
		Ledger:     ledger.New("acc-1", decimal.NewFromInt(1_000_000)),
		Registry:   registry,
	})
	require.NoError(t, err)

	manager := account.NewManager()
	manager.Register(actor)
	manager.StartAll()
	t.Cleanup(manager.StopAll)
	return manager
}

func writeFeed(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReplayer_AppliesEventsInOrder(t *testing.T) {
	manager := newManager(t)
	path := writeFeed(t,
		`# warm-up day`,
		`{"type":"trade","account":"acc-1","data":{"instrument_id":"600000","exchange_id":"SSE","side":"buy","price":10,"volume":100}}`,
		`{"type":"quote","account":"acc-1","data":{"instrument_id":"600000","exchange_id":"SSE","last_price":12}}`,
		`{"type":"trade","account":"acc-1","data":{"instrument_id":"rb2610","exchange_id":"SHFE","side":"buy","offset":"open","price":100,"volume":5}}`,
		`{"type":"settlement","account":"acc-1","data":{"instrument_id":"rb2610","exchange_id":"SHFE","price":105}}`,
		`{"type":"switch_day","account":"acc-1","data":{"trading_day":"2026-01-06"}}`,
	)

	replayer, err := NewReplayer(path, manager)
	require.NoError(t, err)
	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Applied)
	assert.Zero(t, stats.Rejected)
	assert.Zero(t, stats.Invalid)

	snap, err := manager.Snapshot("acc-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-06", snap.TradingDay)
	require.Len(t, snap.Positions, 2)
	assert.InDelta(t, 100, snap.Positions[0].Volume, 1e-9)
	assert.InDelta(t, 12, snap.Positions[0].LastPrice, 1e-9)
	require.Len(t, snap.Positions[1].LongLots, 1)
	assert.InDelta(t, 105, snap.Positions[1].LongLots[0].PreSettlementPrice, 1e-9)
}

func TestReplayer_SkipsInvalidLines(t *testing.T) {
	manager := newManager(t)
	path := writeFeed(t,
		`not json at all`,
		`{"type":"trade","account":"acc-1","data":{"instrument_id":"600000","exchange_id":"SSE","side":"buy","price":0,"volume":10}}`,
		`{"type":"trade","account":"acc-1","data":{"instrument_id":"600000"}}`,
		`{"type":"trade","account":"ghost","data":{"instrument_id":"600000","exchange_id":"SSE","side":"buy","price":10,"volume":10}}`,
		`{"type":"trade","account":"acc-1","data":{"instrument_id":"600000","exchange_id":"SSE","side":"buy","price":10,"volume":10}}`,
	)

	replayer, err := NewReplayer(path, manager)
	require.NoError(t, err)
	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)

	// Bad json, zero price, missing fields, unknown account: all skipped
	// before the core ever sees them.
	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 4, stats.Invalid)
	assert.Zero(t, stats.Rejected)

	snap, err := manager.Snapshot("acc-1")
	require.NoError(t, err)
	require.Len(t, snap.Positions, 1)
	assert.InDelta(t, 10, snap.Positions[0].Volume, 1e-9)
}

func TestReplayer_CountsRejectedEvents(t *testing.T) {
	manager := newManager(t)
	path := writeFeed(t,
		`{"type":"trade","account":"acc-1","data":{"instrument_id":"600000","exchange_id":"SSE","side":"buy","price":10,"volume":10}}`,
		`{"type":"trade","account":"acc-1","data":{"instrument_id":"600000","exchange_id":"SSE","side":"sell","price":10,"volume":11}}`,
	)

	replayer, err := NewReplayer(path, manager)
	require.NoError(t, err)
	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 1, stats.Rejected, "an oversell passes the schema but is rejected by the position")

	snap, err := manager.Snapshot("acc-1")
	require.NoError(t, err)
	assert.InDelta(t, 10, snap.Positions[0].Volume, 1e-9)
}

func TestParseLine_DecimalPrecision(t *testing.T) {
	_, evt, err := parseLine(`{"type":"trade","account":"acc-1","data":{"instrument_id":"600000","exchange_id":"SSE","side":"buy","price":10.000000000000001,"volume":3}}`)
	require.NoError(t, err)
	trade, ok := evt.Payload.(types.Trade)
	require.True(t, ok)
	// The raw JSON text survives, not a float64 approximation.
	assert.Equal(t, "10.000000000000001", trade.Price.String())
}
