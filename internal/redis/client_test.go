package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nftclaim/internal/ledger"
	"nftclaim/internal/pubkey"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewFromClient(goRedis.NewClient(&goRedis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func Test_AccountStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Absent accounts read as version zero", func(t *testing.T) {
		c, _ := newTestClient(t)
		acct, version, err := c.Get(ctx, pubkey.NewRandom())
		require.NoError(t, err)
		assert.Nil(t, acct)
		assert.Equal(t, uint64(0), version)
	})

	t.Run("Committed accounts read back with a bumped version", func(t *testing.T) {
		c, mr := newTestClient(t)
		key := pubkey.NewRandom()
		owner := pubkey.FromName("owner")
		require.NoError(t, c.Commit(ctx, map[pubkey.Pubkey]uint64{key: 0}, map[pubkey.Pubkey]*ledger.Account{
			key: {Owner: owner, Lamports: 7, Data: []byte{1, 2, 3}},
		}))

		acct, version, err := c.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, acct)
		assert.Equal(t, owner, acct.Owner)
		assert.Equal(t, uint64(7), acct.Lamports)
		assert.Equal(t, []byte{1, 2, 3}, acct.Data)
		assert.Equal(t, uint64(1), version)
		assert.Equal(t, "1", mr.HGet(c.AccountKey(key), "version"))
	})

	t.Run("Stale reads conflict and write nothing", func(t *testing.T) {
		c, _ := newTestClient(t)
		key, other := pubkey.NewRandom(), pubkey.NewRandom()
		require.NoError(t, c.Commit(ctx, nil, map[pubkey.Pubkey]*ledger.Account{key: {Lamports: 1}}))

		err := c.Commit(ctx, map[pubkey.Pubkey]uint64{key: 0}, map[pubkey.Pubkey]*ledger.Account{
			key:   {Lamports: 2},
			other: {Lamports: 3},
		})
		assert.ErrorIs(t, err, ledger.ErrConflict)

		acct, _, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), acct.Lamports)
		acct, _, err = c.Get(ctx, other)
		require.NoError(t, err)
		assert.Nil(t, acct)
	})

	t.Run("Cleared accounts keep advancing their version", func(t *testing.T) {
		c, _ := newTestClient(t)
		key := pubkey.NewRandom()
		require.NoError(t, c.Commit(ctx, nil, map[pubkey.Pubkey]*ledger.Account{key: {Lamports: 1}}))
		require.NoError(t, c.Commit(ctx, map[pubkey.Pubkey]uint64{key: 1}, map[pubkey.Pubkey]*ledger.Account{key: nil}))

		acct, version, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, acct)
		assert.Equal(t, uint64(2), version)
	})

	t.Run("Executor runs against the redis store", func(t *testing.T) {
		c, _ := newTestClient(t)
		program := pubkey.FromName("writer")
		target := pubkey.NewRandom()
		e := ledger.NewExecutor(c, zap.NewNop())
		e.Register(program, ledger.ProgramFunc(func(_ context.Context, pc *ledger.Context, _ []byte) error {
			pc.Accounts[0].Owner = program
			pc.Accounts[0].Lamports = 1
			pc.Accounts[0].Data = []byte("ok")
			return nil
		}))

		tx := ledger.NewTransaction(ledger.Instruction{ProgramID: program, Accounts: []ledger.AccountMeta{
			{Pubkey: target, IsWritable: true},
		}})
		require.NoError(t, e.Execute(ctx, tx))

		acct, _, err := c.Get(ctx, target)
		require.NoError(t, err)
		require.NotNil(t, acct)
		assert.Equal(t, []byte("ok"), acct.Data)
	})
}
