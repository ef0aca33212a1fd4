package config

import "strings"

// Config is the top-level configuration of a position book process.
type Config struct {
	App         AppConfig         `toml:"app"`
	Store       StoreConfig       `toml:"store"`
	Feed        FeedConfig        `toml:"feed"`
	Instruments InstrumentsConfig `toml:"instruments"`
	Accounts    []AccountConfig   `toml:"accounts"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// StoreConfig names the persistence files. Both paths may point into the
// same directory; snapshots and the journal use separate databases.
type StoreConfig struct {
	SnapshotPath string `toml:"snapshot_path"`
	JournalPath  string `toml:"journal_path"`
}

// FeedConfig locates the event feed. An empty replay path means the process
// starts with an idle book and only serves queries.
type FeedConfig struct {
	ReplayPath string `toml:"replay_path"`
}

// InstrumentsConfig locates the contract table and controls hot reload.
type InstrumentsConfig struct {
	ContractTablePath string `toml:"contract_table_path"`
	Watch             bool   `toml:"watch"`
}

// AccountConfig seeds one account actor.
type AccountConfig struct {
	ID            string  `toml:"id"`
	StartingAvail float64 `toml:"starting_avail"`
	TradingDay    string  `toml:"trading_day"`
}

// keySet tracks config paths explicitly set in the files, so defaults only
// fill what the operator left out.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}
