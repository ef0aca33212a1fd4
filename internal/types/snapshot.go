package types

import "time"

// LotSnapshot is the reporting view of one open lot.
type LotSnapshot struct {
	OpenPrice          float64 `json:"open_price"`
	OpenDate           string  `json:"open_date"`
	TradingDay         string  `json:"trading_day"`
	Direction          string  `json:"direction"`
	Volume             float64 `json:"volume"`
	ContractMultiplier float64 `json:"contract_multiplier"`
	MarginRatio        float64 `json:"margin_ratio"`
	SettlementPrice    float64 `json:"settlement_price"`
	PreSettlementPrice float64 `json:"pre_settlement_price"`
	Margin             float64 `json:"margin"`
}

// PositionSnapshot is the reporting view of one position, published by the
// account actor after every applied event. Float64 here is a boundary
// representation only; authoritative state stays decimal inside the position.
type PositionSnapshot struct {
	InstrumentID   string        `json:"instrument_id"`
	ExchangeID     string        `json:"exchange_id"`
	SymbolID       string        `json:"symbol_id"`
	InstrumentType string        `json:"instrument_type"`
	LastPrice      float64       `json:"last_price"`
	Volume         float64       `json:"volume,omitempty"`
	YesterdayVol   float64       `json:"yesterday_volume,omitempty"`
	AvgOpenPrice   float64       `json:"avg_open_price,omitempty"`
	ClosePrice     float64       `json:"close_price,omitempty"`
	PreClosePrice  float64       `json:"pre_close_price,omitempty"`
	Margin         float64       `json:"margin"`
	MarketValue    float64       `json:"market_value"`
	RealizedPnL    float64       `json:"realized_pnl"`
	UnrealizedPnL  float64       `json:"unrealized_pnl"`
	LongLots       []LotSnapshot `json:"long_lots,omitempty"`
	ShortLots      []LotSnapshot `json:"short_lots,omitempty"`
}

// LedgerSnapshot is the reporting view of an account ledger.
type LedgerSnapshot struct {
	AccountID   string    `json:"account_id"`
	Avail       float64   `json:"avail"`
	RealizedPnL float64   `json:"realized_pnl"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AccountSnapshot bundles the ledger and all position snapshots of one
// account, published atomically for lock-free readers.
type AccountSnapshot struct {
	AccountID  string             `json:"account_id"`
	TradingDay string             `json:"trading_day"`
	Ledger     LedgerSnapshot     `json:"ledger"`
	Positions  []PositionSnapshot `json:"positions"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
