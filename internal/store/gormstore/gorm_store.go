package gormstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"posbook/internal/account"
	storemodel "posbook/internal/store/model"
	"posbook/internal/types"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// GormStore persists account snapshots using Gorm + SQLite. Each applied
// event overwrites the account's ledger row and the touched position rows,
// so the store always holds the latest consistent view for recovery.
type GormStore struct {
	db *gorm.DB
}

var _ account.SnapshotStore = (*GormStore)(nil)

// NewGormStore opens (and migrates) the snapshot database.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: snapshot path must not be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	models := []interface{}{
		&storemodel.LedgerSnapshotModel{},
		&storemodel.PositionSnapshotModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: keep contention low, reads come from the published
	// in-memory snapshot anyway.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveAccount upserts the ledger row and every position row of the snapshot.
func (s *GormStore) SaveAccount(snap types.AccountSnapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	now := time.Now().Unix()

	ledgerRow := storemodel.LedgerSnapshotModel{
		AccountID:   snap.AccountID,
		TradingDay:  snap.TradingDay,
		Avail:       snap.Ledger.Avail,
		RealizedPnL: snap.Ledger.RealizedPnL,
		UpdatedAt:   now,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		UpdateAll: true,
	}).Create(&ledgerRow).Error
	if err != nil {
		return fmt.Errorf("save ledger snapshot failed: %w", err)
	}

	for _, pos := range snap.Positions {
		row, err := positionRow(snap.AccountID, pos, now)
		if err != nil {
			return err
		}
		err = s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "symbol_id"}},
			UpdateAll: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("save position snapshot failed for %s: %w", pos.SymbolID, err)
		}
	}
	return nil
}

// LoadAccount returns the persisted snapshot for one account, or ok=false
// when the account has never been persisted.
func (s *GormStore) LoadAccount(accountID string) (types.AccountSnapshot, bool, error) {
	var ledgerRow storemodel.LedgerSnapshotModel
	err := s.db.Where("account_id = ?", accountID).First(&ledgerRow).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return types.AccountSnapshot{}, false, nil
		}
		return types.AccountSnapshot{}, false, fmt.Errorf("load ledger snapshot failed: %w", err)
	}

	var posRows []storemodel.PositionSnapshotModel
	if err := s.db.Where("account_id = ?", accountID).Order("symbol_id").Find(&posRows).Error; err != nil {
		return types.AccountSnapshot{}, false, fmt.Errorf("load position snapshots failed: %w", err)
	}

	snap := types.AccountSnapshot{
		AccountID:  accountID,
		TradingDay: ledgerRow.TradingDay,
		Ledger: types.LedgerSnapshot{
			AccountID:   accountID,
			Avail:       ledgerRow.Avail,
			RealizedPnL: ledgerRow.RealizedPnL,
			UpdatedAt:   time.Unix(ledgerRow.UpdatedAt, 0),
		},
		UpdatedAt: time.Unix(ledgerRow.UpdatedAt, 0),
	}
	for _, row := range posRows {
		pos, err := snapshotFromRow(row)
		if err != nil {
			return types.AccountSnapshot{}, false, err
		}
		snap.Positions = append(snap.Positions, pos)
	}
	return snap, true, nil
}

type lotsDocument struct {
	LongLots  []types.LotSnapshot `json:"long_lots,omitempty"`
	ShortLots []types.LotSnapshot `json:"short_lots,omitempty"`
}

func positionRow(accountID string, pos types.PositionSnapshot, now int64) (storemodel.PositionSnapshotModel, error) {
	lots, err := json.Marshal(lotsDocument{LongLots: pos.LongLots, ShortLots: pos.ShortLots})
	if err != nil {
		return storemodel.PositionSnapshotModel{}, fmt.Errorf("marshal lots for %s failed: %w", pos.SymbolID, err)
	}
	return storemodel.PositionSnapshotModel{
		AccountID:      accountID,
		SymbolID:       pos.SymbolID,
		InstrumentID:   pos.InstrumentID,
		ExchangeID:     pos.ExchangeID,
		InstrumentType: pos.InstrumentType,
		LastPrice:      pos.LastPrice,
		Volume:         pos.Volume,
		YesterdayVol:   pos.YesterdayVol,
		AvgOpenPrice:   pos.AvgOpenPrice,
		ClosePrice:     pos.ClosePrice,
		PreClosePrice:  pos.PreClosePrice,
		Margin:         pos.Margin,
		MarketValue:    pos.MarketValue,
		RealizedPnL:    pos.RealizedPnL,
		UnrealizedPnL:  pos.UnrealizedPnL,
		LotsJSON:       datatypes.JSON(lots),
		UpdatedAt:      now,
	}, nil
}

func snapshotFromRow(row storemodel.PositionSnapshotModel) (types.PositionSnapshot, error) {
	pos := types.PositionSnapshot{
		InstrumentID:   row.InstrumentID,
		ExchangeID:     row.ExchangeID,
		SymbolID:       row.SymbolID,
		InstrumentType: row.InstrumentType,
		LastPrice:      row.LastPrice,
		Volume:         row.Volume,
		YesterdayVol:   row.YesterdayVol,
		AvgOpenPrice:   row.AvgOpenPrice,
		ClosePrice:     row.ClosePrice,
		PreClosePrice:  row.PreClosePrice,
		Margin:         row.Margin,
		MarketValue:    row.MarketValue,
		RealizedPnL:    row.RealizedPnL,
		UnrealizedPnL:  row.UnrealizedPnL,
	}
	if len(row.LotsJSON) > 0 {
		var doc lotsDocument
		if err := json.Unmarshal(row.LotsJSON, &doc); err != nil {
			return types.PositionSnapshot{}, fmt.Errorf("unmarshal lots for %s failed: %w", row.SymbolID, err)
		}
		pos.LongLots = doc.LongLots
		pos.ShortLots = doc.ShortLots
	}
	return pos, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
