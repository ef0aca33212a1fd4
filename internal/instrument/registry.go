package instrument

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"posbook/internal/logger"
	"posbook/internal/types"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// contractEntry is the on-disk shape of one contract table row.
type contractEntry struct {
	InstrumentID       string  `yaml:"instrument_id"`
	ExchangeID         string  `yaml:"exchange_id"`
	Type               string  `yaml:"type"`
	ContractMultiplier float64 `yaml:"contract_multiplier"`
	MarginRatio        float64 `yaml:"margin_ratio"`
}

type contractFile struct {
	Contracts []contractEntry `yaml:"contracts"`
}

// Snapshot is one immutable generation of the contract table.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Specs    map[string]Spec
}

// ChangeListener fires after a successful reload.
type ChangeListener func(Snapshot)

// Registry loads the contract table from a YAML file and watches it for
// changes. Readers take a Resolver snapshot per operation; a reload swaps the
// snapshot atomically and never mutates a published one.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// NewRegistry reads the contract table and starts watching the file.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("contract registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read contract table failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("contract table reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// NewStaticRegistry builds a registry over a fixed spec set, without file
// watching. Used by tests and by callers that assemble specs in memory.
func NewStaticRegistry(specs []Spec) *Registry {
	m := make(map[string]Spec, len(specs))
	for _, s := range specs {
		m[SymbolID(s.InstrumentID, s.ExchangeID)] = s
	}
	return &Registry{snapshot: Snapshot{Version: 1, LoadedAt: time.Now(), Specs: m}}
}

// LoadSpecs reads the contract table once, without watching. Callers that
// want a fixed table pair this with NewStaticRegistry.
func LoadSpecs(path string) ([]Spec, error) {
	cfg, err := readContractFile(path)
	if err != nil {
		return nil, err
	}
	specs := make([]Spec, 0, len(cfg.Contracts))
	for i, entry := range cfg.Contracts {
		spec, err := normalizeEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("contract table entry #%d invalid: %w", i+1, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Resolver returns the current table generation as an immutable resolver.
func (r *Registry) Resolver() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Resolver{specs: r.snapshot.Specs}
}

// Snapshot returns the current table generation.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

// OnChange registers a listener invoked after each successful reload.
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readContractFile(r.path)
	if err != nil {
		return err
	}
	specs := make(map[string]Spec, len(cfg.Contracts))
	for i, entry := range cfg.Contracts {
		spec, err := normalizeEntry(entry)
		if err != nil {
			return fmt.Errorf("contract table entry #%d invalid: %w", i+1, err)
		}
		specs[SymbolID(spec.InstrumentID, spec.ExchangeID)] = spec
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Specs:    specs,
	}
	r.mu.Unlock()
	logger.Infof("contract registry loaded %d specs from %s", len(specs), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := r.snapshot
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go fn(snap)
	}
}

func normalizeEntry(entry contractEntry) (Spec, error) {
	instrument := strings.TrimSpace(entry.InstrumentID)
	exchange := strings.TrimSpace(entry.ExchangeID)
	if instrument == "" || exchange == "" {
		return Spec{}, fmt.Errorf("instrument_id and exchange_id are required")
	}
	it := types.InstrumentType(strings.ToLower(strings.TrimSpace(entry.Type)))
	switch it {
	case types.InstrumentStock:
		return Spec{InstrumentID: instrument, ExchangeID: exchange, InstrumentType: it}, nil
	case types.InstrumentFuture:
		mult := decimal.NewFromFloat(entry.ContractMultiplier)
		ratio := decimal.NewFromFloat(entry.MarginRatio)
		if !mult.IsPositive() {
			return Spec{}, fmt.Errorf("contract_multiplier must be > 0 for %s.%s", instrument, exchange)
		}
		if !ratio.IsPositive() || ratio.GreaterThan(decimal.NewFromInt(1)) {
			return Spec{}, fmt.Errorf("margin_ratio must be in (0, 1] for %s.%s", instrument, exchange)
		}
		return Spec{
			InstrumentID:       instrument,
			ExchangeID:         exchange,
			InstrumentType:     it,
			ContractMultiplier: mult,
			MarginRatio:        ratio,
		}, nil
	default:
		return Spec{}, fmt.Errorf("unknown instrument type %q", entry.Type)
	}
}

func readContractFile(path string) (contractFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return contractFile{}, fmt.Errorf("read contract table failed: %w", err)
	}
	var cfg contractFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return contractFile{}, fmt.Errorf("parse contract table failed: %w", err)
	}
	return cfg, nil
}
