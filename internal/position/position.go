// Package position provides the position store: per-token entry-price
// bookkeeping and valuation snapshots, with a file backend and an optional
// Postgres backend behind the same interface.
package position

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/nadfun-trader/internal/types"
)

// Position is one tracked token holding. Values are human-scaled native
// currency amounts; raw wire amounts never enter the store.
type Position struct {
	Address      string           `json:"address"`
	Symbol       string           `json:"symbol"`
	Name         string           `json:"name"`
	Balance      float64          `json:"balance"`
	CurrentValue float64          `json:"currentValueMON"`
	EntryValue   float64          `json:"entryValueMON"`
	EntryKnown   bool             `json:"entryKnown"`
	PnLPercent   float64          `json:"pnlPercent"`
	DataSource   types.DataSource `json:"dataSource"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// Report is the persisted document: the full set of tracked positions plus
// snapshot metadata for the cycle that produced it.
type Report struct {
	Timestamp      time.Time  `json:"timestamp"`
	Wallet         string     `json:"wallet"`
	Cycle          string     `json:"cycle"`
	PositionsCount int        `json:"positionsCount"`
	Positions      []Position `json:"positions"`
}

// Repository is the persistence surface for positions. Token lookups are
// case-insensitive on the address.
type Repository interface {
	// Get returns the position for a token, or nil when none is tracked.
	Get(ctx context.Context, token common.Address) (*Position, error)
	// List returns all tracked positions.
	List(ctx context.Context) ([]Position, error)
	// RecordEntry books the cost basis for a token after a confirmed buy.
	// A repeat buy of the same token overwrites the entry value.
	RecordEntry(ctx context.Context, token common.Address, symbol string, entryValue float64) error
	// SaveSnapshot merges the evaluated positions into the tracked set and
	// stamps the document with the wallet and cycle id. A recorded cost
	// basis survives the merge, and entries the evaluator did not cover
	// stay tracked; only Remove drops an entry.
	SaveSnapshot(ctx context.Context, wallet, cycle string, positions []Position) error
	// Remove drops a token from the store after a confirmed liquidation.
	Remove(ctx context.Context, token common.Address) error
	Close()
}

// normalizeAddress lowercases an address for use as a store key.
func normalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

// upsertValuation merges one evaluated position into the tracked set.
// A valuation write touches value, balance and provenance fields; a
// recorded cost basis is never overwritten by it.
func upsertValuation(positions []Position, incoming Position) []Position {
	key := normalizeAddress(incoming.Address)
	for i := range positions {
		if normalizeAddress(positions[i].Address) != key {
			continue
		}
		if positions[i].EntryKnown && positions[i].EntryValue > 0 {
			incoming.EntryValue = positions[i].EntryValue
			incoming.EntryKnown = true
		}
		positions[i] = incoming
		return positions
	}
	return append(positions, incoming)
}

// newEntryPosition builds the position recorded at buy confirmation.
func newEntryPosition(token common.Address, symbol string, entryValue float64, now time.Time) Position {
	return Position{
		Address:      token.Hex(),
		Symbol:       symbol,
		CurrentValue: entryValue,
		EntryValue:   entryValue,
		EntryKnown:   true,
		PnLPercent:   0,
		DataSource:   types.SourceBuyRecord,
		UpdatedAt:    now,
	}
}
