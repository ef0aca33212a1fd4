// Package feed delivers trades, quotes, and settlement events to account
// actors from a newline-delimited JSON file. It is the in-scope stand-in for
// the execution and market-data delivery layer: retry and transport policy
// stay out here, the accounting core never sees a malformed event.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"posbook/internal/account"
	"posbook/internal/logger"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Stats counts a replay run.
type Stats struct {
	Applied  int
	Rejected int
	Invalid  int
}

// Replayer streams a JSONL event file into the account manager.
type Replayer struct {
	path    string
	manager *account.Manager
	schema  *jsonschema.Schema
}

func NewReplayer(path string, manager *account.Manager) (*Replayer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("feed: replay path must not be empty")
	}
	if manager == nil {
		return nil, fmt.Errorf("feed: account manager required")
	}
	schema, err := compileEventSchema()
	if err != nil {
		return nil, fmt.Errorf("feed: compile event schema failed: %w", err)
	}
	return &Replayer{path: path, manager: manager, schema: schema}, nil
}

// Run replays the whole file in order. Invalid lines are logged and skipped;
// rejected events (bad trades, unknown instruments) are counted but do not
// stop the run. Event order within the file is the application order.
func (r *Replayer) Run(ctx context.Context) (Stats, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return Stats{}, fmt.Errorf("feed: open replay file failed: %w", err)
	}
	defer file.Close()

	var stats Stats
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := r.validate(line); err != nil {
			stats.Invalid++
			logger.Warnf("feed: line %d invalid, skipped: %v", lineNo, err)
			continue
		}

		accountID, evt, err := parseLine(line)
		if err != nil {
			stats.Invalid++
			logger.Warnf("feed: line %d unparsable, skipped: %v", lineNo, err)
			continue
		}

		actor, ok := r.manager.Get(accountID)
		if !ok {
			stats.Invalid++
			logger.Warnf("feed: line %d targets unknown account %q, skipped", lineNo, accountID)
			continue
		}

		if err := actor.SendSync(ctx, evt); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.Rejected++
			logger.Warnf("feed: line %d rejected: %v", lineNo, err)
			continue
		}
		stats.Applied++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("feed: read replay file failed: %w", err)
	}
	logger.Infof("feed: replay finished applied=%d rejected=%d invalid=%d",
		stats.Applied, stats.Rejected, stats.Invalid)
	return stats, nil
}

// validate checks one line against the event schema.
func (r *Replayer) validate(line string) error {
	var doc any
	if err := json.Unmarshal([]byte(line), &doc); err != nil {
		return fmt.Errorf("not valid json: %w", err)
	}
	return r.schema.Validate(doc)
}
