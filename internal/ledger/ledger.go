package ledger

import (
	"time"

	"posbook/internal/types"

	"github.com/shopspring/decimal"
)

// Ledger is the account-level aggregate of available cash and realized PnL,
// shared across all positions of one account. It carries no locking of its
// own: every mutation must go through the owning account actor, which
// serializes trade, settlement, and day-switch processing.
type Ledger struct {
	accountID   string
	avail       decimal.Decimal
	realizedPnL decimal.Decimal
}

func New(accountID string, startingAvail decimal.Decimal) *Ledger {
	return &Ledger{accountID: accountID, avail: startingAvail}
}

// Restore rebuilds a ledger from persisted aggregates.
func Restore(accountID string, avail, realizedPnL decimal.Decimal) *Ledger {
	return &Ledger{accountID: accountID, avail: avail, realizedPnL: realizedPnL}
}

func (l *Ledger) AccountID() string            { return l.accountID }
func (l *Ledger) Avail() decimal.Decimal       { return l.avail }
func (l *Ledger) RealizedPnL() decimal.Decimal { return l.realizedPnL }

// AddAvail applies a signed cash delta. Negative deltas debit the account.
func (l *Ledger) AddAvail(delta decimal.Decimal) {
	l.avail = l.avail.Add(delta)
}

// SubAvail debits a signed cash delta.
func (l *Ledger) SubAvail(delta decimal.Decimal) {
	l.avail = l.avail.Sub(delta)
}

// AddRealizedPnL accumulates realized PnL from a closing trade.
func (l *Ledger) AddRealizedPnL(delta decimal.Decimal) {
	l.realizedPnL = l.realizedPnL.Add(delta)
}

// Snapshot renders the ledger for reporting.
func (l *Ledger) Snapshot() types.LedgerSnapshot {
	avail, _ := l.avail.Float64()
	realized, _ := l.realizedPnL.Float64()
	return types.LedgerSnapshot{
		AccountID:   l.accountID,
		Avail:       avail,
		RealizedPnL: realized,
		UpdatedAt:   time.Now(),
	}
}
