package position

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nadfun-trader/internal/config"
	apperrors "github.com/nadfun-trader/internal/errors"
	"github.com/nadfun-trader/internal/types"
)

// PostgresRepository persists positions in Postgres. It exists for
// deployments running several wallets or wanting history across hosts;
// the file backend remains the default.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a Postgres-backed repository.
func NewPostgresRepository(cfg *config.PostgresConfig) (*PostgresRepository, error) {
	connString := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable pool_max_conns=%d",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.MaxConnections,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = int32(cfg.MaxConnections) // #nosec G115 - MaxConnections is validated in config
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Ping checks if the database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Get returns the tracked position for a token, or nil when absent.
func (r *PostgresRepository) Get(ctx context.Context, token common.Address) (*Position, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT display_address, symbol, name, balance, current_value, entry_value,
		       entry_known, pnl_percent, data_source, updated_at
		FROM positions
		WHERE address = $1`,
		normalizeAddress(token.Hex()),
	)

	pos, err := scanPosition(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get", err)
	}
	return pos, nil
}

// List returns all tracked positions.
func (r *PostgresRepository) List(ctx context.Context) ([]Position, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT display_address, symbol, name, balance, current_value, entry_value,
		       entry_known, pnl_percent, data_source, updated_at
		FROM positions
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, apperrors.NewStoreError("list", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("list", err)
		}
		positions = append(positions, *pos)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("list", err)
	}
	return positions, nil
}

// RecordEntry books the cost basis for a token after a confirmed buy.
func (r *PostgresRepository) RecordEntry(ctx context.Context, token common.Address, symbol string, entryValue float64) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO positions (
			address, display_address, symbol, name, balance,
			current_value, entry_value, entry_known, pnl_percent,
			data_source, updated_at
		) VALUES ($1, $2, $3, '', 0, $4, $4, TRUE, 0, $5, $6)
		ON CONFLICT (address) DO UPDATE SET
			symbol       = EXCLUDED.symbol,
			current_value = EXCLUDED.current_value,
			entry_value  = EXCLUDED.entry_value,
			entry_known  = TRUE,
			pnl_percent  = 0,
			data_source  = EXCLUDED.data_source,
			updated_at   = EXCLUDED.updated_at`,
		normalizeAddress(token.Hex()), token.Hex(), symbol, entryValue,
		string(types.SourceBuyRecord), now,
	)
	if err != nil {
		return apperrors.NewStoreError("record entry", err)
	}
	return nil
}

// SaveSnapshot merges the evaluated positions into the tracked set.
// The upserts run in one transaction so a failed snapshot never leaves
// a partial set behind. A recorded cost basis survives the merge, and
// rows the evaluator did not cover stay in place; only Remove deletes.
func (r *PostgresRepository) SaveSnapshot(ctx context.Context, wallet, cycle string, positions []Position) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperrors.NewStoreError("begin snapshot", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	for _, pos := range positions {
		_, err := tx.Exec(ctx, `
			INSERT INTO positions (
				address, display_address, symbol, name, balance,
				current_value, entry_value, entry_known, pnl_percent,
				data_source, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (address) DO UPDATE SET
				display_address = EXCLUDED.display_address,
				symbol          = EXCLUDED.symbol,
				name            = EXCLUDED.name,
				balance         = EXCLUDED.balance,
				current_value   = EXCLUDED.current_value,
				entry_value     = CASE
					WHEN positions.entry_known AND positions.entry_value > 0
					THEN positions.entry_value ELSE EXCLUDED.entry_value END,
				entry_known     = CASE
					WHEN positions.entry_known AND positions.entry_value > 0
					THEN TRUE ELSE EXCLUDED.entry_known END,
				pnl_percent     = EXCLUDED.pnl_percent,
				data_source     = EXCLUDED.data_source,
				updated_at      = EXCLUDED.updated_at`,
			normalizeAddress(pos.Address), pos.Address, pos.Symbol, pos.Name,
			pos.Balance, pos.CurrentValue, pos.EntryValue, pos.EntryKnown,
			pos.PnLPercent, string(pos.DataSource), pos.UpdatedAt,
		)
		if err != nil {
			return apperrors.NewStoreError("upsert snapshot", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO snapshots (wallet, cycle, positions_count, created_at)
		VALUES ($1, $2, $3, $4)`,
		wallet, cycle, len(positions), time.Now().UTC(),
	); err != nil {
		return apperrors.NewStoreError("record snapshot", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStoreError("commit snapshot", err)
	}
	return nil
}

// Remove drops a token from the store.
func (r *PostgresRepository) Remove(ctx context.Context, token common.Address) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM positions WHERE address = $1`,
		normalizeAddress(token.Hex()))
	if err != nil {
		return apperrors.NewStoreError("remove", err)
	}
	return nil
}

func scanPosition(row pgx.Row) (*Position, error) {
	var pos Position
	var source string
	err := row.Scan(
		&pos.Address, &pos.Symbol, &pos.Name, &pos.Balance,
		&pos.CurrentValue, &pos.EntryValue, &pos.EntryKnown,
		&pos.PnLPercent, &source, &pos.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pos.DataSource = types.DataSource(source)
	return &pos, nil
}
