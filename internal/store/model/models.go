package model

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerSnapshotModel is the persisted account ledger view, one row per
// account, overwritten on every applied event.
type LedgerSnapshotModel struct {
	ID          int64   `gorm:"column:id;primaryKey"`
	AccountID   string  `gorm:"column:account_id;uniqueIndex"`
	TradingDay  string  `gorm:"column:trading_day"`
	Avail       float64 `gorm:"column:avail"`
	RealizedPnL float64 `gorm:"column:realized_pnl"`
	UpdatedAt   int64   `gorm:"column:updated_at"`

	CreatedAt time.Time `gorm:"-"`
}

func (LedgerSnapshotModel) TableName() string { return "ledger_snapshots" }

// PositionSnapshotModel is the persisted view of one position, one row per
// (account, symbol). Lots are stored as a JSON document; they are read back
// only for margined positions.
type PositionSnapshotModel struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	AccountID      string         `gorm:"column:account_id;uniqueIndex:idx_account_symbol,priority:1"`
	SymbolID       string         `gorm:"column:symbol_id;uniqueIndex:idx_account_symbol,priority:2"`
	InstrumentID   string         `gorm:"column:instrument_id"`
	ExchangeID     string         `gorm:"column:exchange_id"`
	InstrumentType string         `gorm:"column:instrument_type"`
	LastPrice      float64        `gorm:"column:last_price"`
	Volume         float64        `gorm:"column:volume"`
	YesterdayVol   float64        `gorm:"column:yesterday_volume"`
	AvgOpenPrice   float64        `gorm:"column:avg_open_price"`
	ClosePrice     float64        `gorm:"column:close_price"`
	PreClosePrice  float64        `gorm:"column:pre_close_price"`
	Margin         float64        `gorm:"column:margin"`
	MarketValue    float64        `gorm:"column:market_value"`
	RealizedPnL    float64        `gorm:"column:realized_pnl"`
	UnrealizedPnL  float64        `gorm:"column:unrealized_pnl"`
	LotsJSON       datatypes.JSON `gorm:"column:lots_json;type:TEXT"`
	UpdatedAt      int64          `gorm:"column:updated_at"`

	CreatedAt time.Time `gorm:"-"`
}

func (PositionSnapshotModel) TableName() string { return "position_snapshots" }
