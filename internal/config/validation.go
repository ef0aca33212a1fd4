package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := validateAccounts(c.Accounts); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug/info/warn/error, got %q", a.LogLevel)
	}
	return nil
}

func validateAccounts(accounts []AccountConfig) error {
	if len(accounts) == 0 {
		return fmt.Errorf("accounts requires at least one entry")
	}
	seen := make(map[string]bool, len(accounts))
	for i, acc := range accounts {
		id := strings.TrimSpace(acc.ID)
		if id == "" {
			return fmt.Errorf("accounts[%d] missing id", i)
		}
		if seen[id] {
			return fmt.Errorf("accounts contains duplicate id %q", id)
		}
		seen[id] = true
		if acc.StartingAvail < 0 {
			return fmt.Errorf("accounts.%s starting_avail must be >= 0", id)
		}
		if strings.TrimSpace(acc.TradingDay) == "" {
			return fmt.Errorf("accounts.%s missing trading_day", id)
		}
	}
	return nil
}
