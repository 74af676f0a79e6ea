package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"nftclaim/internal/observability/metrics"
)

// ErrDistributorNotFound indicates no audit row exists for a distributor.
var ErrDistributorNotFound = errors.New("distributor not found")

// Store wraps a pgx connection pool and exposes typed helpers.
type Store struct {
	pool *pgxpool.Pool
}

// Distributor mirrors an on-ledger distributor for reporting.
type Distributor struct {
	Address             string
	Authority           string
	Custody             string
	RewardMint          string
	RewardAmountTotal   decimal.Decimal
	RewardAmountPerUnit decimal.Decimal
	AmountClaimed       decimal.Decimal
	StartTime           time.Time
	CollectionSymbol    string
	CollectionCreator   string
}

// ClaimLog holds data for claim_log insertions.
type ClaimLog struct {
	EventID     uuid.UUID
	Distributor string
	Claimant    string
	AssetMint   string
	Destination string
	Amount      decimal.Decimal
	ClaimedAt   time.Time
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases underlying connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema guarantees required tables exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("ensure_schema", time.Since(start)) }()
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// RunInTx executes fn within a transaction boundary.
func (s *Store) RunInTx(ctx context.Context, fn func(pgx.Tx) error) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("run_in_tx", time.Since(start)) }()
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// UpsertDistributor records a distributor, keeping any claimed total already
// accumulated from claim events.
func (s *Store) UpsertDistributor(ctx context.Context, d Distributor) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("upsert_distributor", time.Since(start)) }()
	_, err := s.pool.Exec(ctx, `
        INSERT INTO distributor (address, authority, custody, reward_mint, reward_amount_total,
            reward_amount_per_unit, amount_claimed, start_time, collection_symbol, collection_creator, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
        ON CONFLICT (address) DO UPDATE SET
            authority = EXCLUDED.authority,
            custody = EXCLUDED.custody,
            reward_mint = EXCLUDED.reward_mint,
            reward_amount_total = EXCLUDED.reward_amount_total,
            reward_amount_per_unit = EXCLUDED.reward_amount_per_unit,
            start_time = EXCLUDED.start_time,
            collection_symbol = EXCLUDED.collection_symbol,
            collection_creator = EXCLUDED.collection_creator
    `, d.Address, d.Authority, d.Custody, d.RewardMint, d.RewardAmountTotal, d.RewardAmountPerUnit,
		d.AmountClaimed, d.StartTime, d.CollectionSymbol, d.CollectionCreator)
	return err
}

// GetDistributor loads the audit row for address.
func (s *Store) GetDistributor(ctx context.Context, address string) (*Distributor, error) {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("get_distributor", time.Since(start)) }()
	var d Distributor
	err := s.pool.QueryRow(ctx, `
        SELECT address, authority, custody, reward_mint, reward_amount_total, reward_amount_per_unit,
            amount_claimed, start_time, collection_symbol, collection_creator
        FROM distributor
        WHERE address = $1
    `, address).Scan(&d.Address, &d.Authority, &d.Custody, &d.RewardMint, &d.RewardAmountTotal,
		&d.RewardAmountPerUnit, &d.AmountClaimed, &d.StartTime, &d.CollectionSymbol, &d.CollectionCreator)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDistributorNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// InsertClaimLogTx stores a claim inside tx. It reports false when the event
// was already recorded.
func (s *Store) InsertClaimLogTx(ctx context.Context, tx pgx.Tx, entry ClaimLog) (bool, error) {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("insert_claim_log", time.Since(start)) }()
	cmdTag, err := tx.Exec(ctx, `
        INSERT INTO claim_log (event_id, distributor, claimant, asset_mint, destination, amount, claimed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (event_id) DO NOTHING
    `, entry.EventID, entry.Distributor, entry.Claimant, entry.AssetMint, entry.Destination, entry.Amount, entry.ClaimedAt)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() == 1, nil
}

// AddAmountClaimedTx bumps the claimed total of a distributor. A distributor
// without an audit row yet gets a placeholder that UpsertDistributor later
// completes, keeping the total.
func (s *Store) AddAmountClaimedTx(ctx context.Context, tx pgx.Tx, address string, amount decimal.Decimal) error {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("add_amount_claimed", time.Since(start)) }()
	_, err := tx.Exec(ctx, `
        INSERT INTO distributor (address, authority, custody, reward_mint, reward_amount_total,
            reward_amount_per_unit, amount_claimed, start_time, collection_symbol, collection_creator, created_at)
        VALUES ($1, '', '', '', 0, 0, $2, to_timestamp(0), '', '', NOW())
        ON CONFLICT (address) DO UPDATE SET
            amount_claimed = distributor.amount_claimed + EXCLUDED.amount_claimed
    `, address, amount)
	return err
}

// RecordClaim logs a claim and adds it to its distributor's total once per
// event id. It reports whether the event was new.
func (s *Store) RecordClaim(ctx context.Context, entry ClaimLog) (bool, error) {
	var inserted bool
	err := s.RunInTx(ctx, func(tx pgx.Tx) error {
		var err error
		inserted, err = s.InsertClaimLogTx(ctx, tx, entry)
		if err != nil || !inserted {
			return err
		}
		return s.AddAmountClaimedTx(ctx, tx, entry.Distributor, entry.Amount)
	})
	return inserted, err
}

// ListClaims returns the newest claims of a distributor.
func (s *Store) ListClaims(ctx context.Context, distributor string, limit int) ([]ClaimLog, error) {
	start := time.Now()
	defer func() { metrics.ObserveDBOperation("list_claims", time.Since(start)) }()
	rows, err := s.pool.Query(ctx, `
        SELECT event_id, distributor, claimant, asset_mint, destination, amount, claimed_at
        FROM claim_log
        WHERE distributor = $1
        ORDER BY claimed_at DESC, id DESC
        LIMIT $2
    `, distributor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ClaimLog
	for rows.Next() {
		var c ClaimLog
		if err := rows.Scan(&c.EventID, &c.Distributor, &c.Claimant, &c.AssetMint, &c.Destination, &c.Amount, &c.ClaimedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
