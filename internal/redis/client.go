package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goRedis "github.com/redis/go-redis/v9"

	"nftclaim/internal/ledger"
	"nftclaim/internal/observability/metrics"
	"nftclaim/internal/pubkey"
)

const (
	fieldVersion = "version"
	fieldRecord  = "record"
)

// Client wraps go-redis and stores ledger accounts as versioned hashes.
type Client struct {
	rdb *goRedis.Client
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *goRedis.Client) *Client {
	return &Client{rdb: rdb}
}

// New creates a Redis client and verifies connectivity.
func New(addr string) (*Client, error) {
	rdb := goRedis.NewClient(&goRedis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{rdb: rdb}, nil
}

// Close shuts down the underlying Redis client.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AccountKey returns the Redis key holding one ledger account.
func (c *Client) AccountKey(key pubkey.Pubkey) string {
	return fmt.Sprintf("ledger:account:%s", key)
}

// Get satisfies ledger.Store. Cleared accounts report their last version.
func (c *Client) Get(ctx context.Context, key pubkey.Pubkey) (*ledger.Account, uint64, error) {
	start := time.Now()
	defer func() { metrics.ObserveRedisOperation("get_account", time.Since(start)) }()

	vals, err := c.rdb.HMGet(ctx, c.AccountKey(key), fieldVersion, fieldRecord).Result()
	if err != nil {
		return nil, 0, err
	}
	return decodeRecord(vals)
}

// Commit satisfies ledger.Store. The read versions are checked under WATCH
// and the writes applied in one MULTI block; a concurrent writer on any
// watched key turns into ledger.ErrConflict.
func (c *Client) Commit(ctx context.Context, reads map[pubkey.Pubkey]uint64, writes map[pubkey.Pubkey]*ledger.Account) error {
	start := time.Now()
	defer func() { metrics.ObserveRedisOperation("commit_accounts", time.Since(start)) }()

	touched := make(map[pubkey.Pubkey]struct{}, len(reads)+len(writes))
	for k := range reads {
		touched[k] = struct{}{}
	}
	for k := range writes {
		touched[k] = struct{}{}
	}
	keys := make([]string, 0, len(touched))
	for k := range touched {
		keys = append(keys, c.AccountKey(k))
	}
	if len(keys) == 0 {
		return nil
	}

	err := c.rdb.Watch(ctx, func(tx *goRedis.Tx) error {
		versions := make(map[pubkey.Pubkey]uint64, len(touched))
		for k := range touched {
			v, err := tx.HGet(ctx, c.AccountKey(k), fieldVersion).Uint64()
			if err != nil && !errors.Is(err, goRedis.Nil) {
				return err
			}
			versions[k] = v
		}
		for k, want := range reads {
			if versions[k] != want {
				return fmt.Errorf("%w: %s at version %d, read %d", ledger.ErrConflict, k, versions[k], want)
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe goRedis.Pipeliner) error {
			for k, acct := range writes {
				record := ""
				if acct != nil {
					raw, err := json.Marshal(acct)
					if err != nil {
						return err
					}
					record = string(raw)
				}
				pipe.HSet(ctx, c.AccountKey(k), fieldVersion, versions[k]+1, fieldRecord, record)
			}
			return nil
		})
		return err
	}, keys...)
	if errors.Is(err, goRedis.TxFailedErr) {
		return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
	}
	return err
}

func decodeRecord(vals []interface{}) (*ledger.Account, uint64, error) {
	if len(vals) != 2 || vals[0] == nil {
		return nil, 0, nil
	}
	raw, _ := vals[0].(string)
	version, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing account version: %w", err)
	}
	record, _ := vals[1].(string)
	if record == "" {
		return nil, version, nil
	}
	var acct ledger.Account
	if err := json.Unmarshal([]byte(record), &acct); err != nil {
		return nil, 0, fmt.Errorf("decoding account record: %w", err)
	}
	return &acct, version, nil
}
