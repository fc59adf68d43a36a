package position

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/nadfun-trader/internal/errors"
	"github.com/nadfun-trader/internal/logging"
	"github.com/nadfun-trader/internal/types"
)

// FileRepository persists the report document as a single JSON file.
// Writes go through a temp file and rename, so a crash mid-write never
// leaves a truncated document behind.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository creates a file-backed repository at path. The file is
// created lazily on first write.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Close is a no-op for the file backend.
func (r *FileRepository) Close() {}

// load reads the report document. A missing or corrupt file yields an
// empty report; positions are re-derived from chain state on the next
// evaluation cycle, so starting over is safe.
func (r *FileRepository) load(ctx context.Context) *Report {
	empty := &Report{Cycle: "buy_record", Positions: []Position{}}

	raw, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.FromContext(ctx).WithField("path", r.path).WithError(err).
				Warn("Position report unreadable, starting empty")
		}
		return empty
	}

	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		logging.FromContext(ctx).WithField("path", r.path).WithError(err).
			Warn("Position report corrupt, starting empty")
		return empty
	}
	if report.Positions == nil {
		report.Positions = []Position{}
	}
	return &report
}

// save atomically writes the report document.
func (r *FileRepository) save(report *Report) error {
	report.PositionsCount = len(report.Positions)

	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return apperrors.NewStoreError("marshal", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewStoreError("mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, ".positions-*.tmp")
	if err != nil {
		return apperrors.NewStoreError("create temp", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewStoreError("write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.NewStoreError("close", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return apperrors.NewStoreError("rename", fmt.Errorf("replace %s: %w", r.path, err))
	}
	return nil
}

// Get returns the tracked position for a token, or nil when absent.
func (r *FileRepository) Get(ctx context.Context, token common.Address) (*Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := r.load(ctx)
	key := normalizeAddress(token.Hex())
	for i := range report.Positions {
		if normalizeAddress(report.Positions[i].Address) == key {
			pos := report.Positions[i]
			return &pos, nil
		}
	}
	return nil, nil
}

// List returns all tracked positions.
func (r *FileRepository) List(ctx context.Context) ([]Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx).Positions, nil
}

// RecordEntry books the cost basis for a token after a confirmed buy.
func (r *FileRepository) RecordEntry(ctx context.Context, token common.Address, symbol string, entryValue float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := r.load(ctx)
	now := time.Now().UTC()
	key := normalizeAddress(token.Hex())

	found := false
	for i := range report.Positions {
		if normalizeAddress(report.Positions[i].Address) != key {
			continue
		}
		pos := &report.Positions[i]
		pos.EntryValue = entryValue
		pos.EntryKnown = true
		pos.CurrentValue = entryValue
		pos.PnLPercent = 0
		pos.Symbol = symbol
		pos.DataSource = types.SourceBuyRecord
		pos.UpdatedAt = now
		found = true
		break
	}
	if !found {
		report.Positions = append(report.Positions, newEntryPosition(token, symbol, entryValue, now))
	}

	report.Timestamp = now
	report.Cycle = "buy_record"
	return r.save(report)
}

// SaveSnapshot merges the evaluated positions into the tracked set.
// Entries the evaluator skipped this cycle (unpriceable token, failed
// balance read) keep their recorded cost basis untouched.
func (r *FileRepository) SaveSnapshot(ctx context.Context, wallet, cycle string, positions []Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := r.load(ctx)
	for _, pos := range positions {
		report.Positions = upsertValuation(report.Positions, pos)
	}
	report.Timestamp = time.Now().UTC()
	report.Wallet = wallet
	report.Cycle = cycle
	return r.save(report)
}

// Remove drops a token from the store.
func (r *FileRepository) Remove(ctx context.Context, token common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := r.load(ctx)
	key := normalizeAddress(token.Hex())

	kept := report.Positions[:0]
	for _, pos := range report.Positions {
		if normalizeAddress(pos.Address) != key {
			kept = append(kept, pos)
		}
	}
	if len(kept) == len(report.Positions) {
		return nil
	}
	report.Positions = kept
	report.Timestamp = time.Now().UTC()
	return r.save(report)
}
