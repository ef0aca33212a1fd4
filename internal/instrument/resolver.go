package instrument

import (
	"errors"
	"fmt"
	"strings"

	"posbook/internal/types"

	"github.com/shopspring/decimal"
)

// ErrUnresolvedInstrument is returned when an instrument/exchange pair cannot
// be classified from the contract table or the exchange defaults.
var ErrUnresolvedInstrument = errors.New("unresolved instrument")

// Spec carries the accounting parameters of one instrument. Cash instruments
// leave the margin fields at zero.
type Spec struct {
	InstrumentID       string
	ExchangeID         string
	InstrumentType     types.InstrumentType
	ContractMultiplier decimal.Decimal
	MarginRatio        decimal.Decimal
}

// SymbolID derives the canonical symbol key from an instrument/exchange pair.
// It is a pure function; every component that needs the key recomputes it
// rather than storing a settable copy.
func SymbolID(instrumentID, exchangeID string) string {
	return strings.ToLower(strings.TrimSpace(instrumentID)) + "." + strings.ToLower(strings.TrimSpace(exchangeID))
}

// exchangeDefaults classifies instruments by venue when the contract table
// has no explicit entry. Futures venues still need a table entry for
// multiplier and margin ratio, so they resolve only through the table.
var exchangeDefaults = map[string]types.InstrumentType{
	"sse":    types.InstrumentStock,
	"sze":    types.InstrumentStock,
	"nasdaq": types.InstrumentStock,
	"nyse":   types.InstrumentStock,
}

var futuresExchanges = map[string]bool{
	"shfe":  true,
	"dce":   true,
	"czce":  true,
	"cffex": true,
	"ine":   true,
}

// Resolver answers instrument classification queries against an immutable
// contract-table snapshot. Obtain one from Registry.Resolver() so concurrent
// reloads never change the view mid-operation.
type Resolver struct {
	specs map[string]Spec
}

// Resolve classifies an instrument/exchange pair. Table entries win; known
// stock venues fall back to a plain cash spec; anything else is unresolved.
func (r *Resolver) Resolve(instrumentID, exchangeID string) (Spec, error) {
	key := SymbolID(instrumentID, exchangeID)
	if r != nil {
		if spec, ok := r.specs[key]; ok {
			return spec, nil
		}
	}
	exch := strings.ToLower(strings.TrimSpace(exchangeID))
	if it, ok := exchangeDefaults[exch]; ok {
		return Spec{
			InstrumentID:   strings.TrimSpace(instrumentID),
			ExchangeID:     strings.TrimSpace(exchangeID),
			InstrumentType: it,
		}, nil
	}
	if futuresExchanges[exch] {
		return Spec{}, fmt.Errorf("%w: futures instrument %s needs a contract table entry", ErrUnresolvedInstrument, key)
	}
	return Spec{}, fmt.Errorf("%w: %s", ErrUnresolvedInstrument, key)
}
