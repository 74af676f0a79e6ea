package distributor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nftclaim/internal/ledger"
	"nftclaim/internal/metadata"
	"nftclaim/internal/pubkey"
	"nftclaim/internal/system"
	"nftclaim/internal/token"
)

const startTime int64 = 1_700_000_000

type fixture struct {
	t        *testing.T
	ctx      context.Context
	now      time.Time
	executor *ledger.Executor

	authority *pubkey.Keypair
	claimant  *pubkey.Keypair
	state     pubkey.Pubkey
	custody   pubkey.Pubkey
	rewards   pubkey.Pubkey
	creator   pubkey.Pubkey
	dest      pubkey.Pubkey
}

type asset struct {
	mint    pubkey.Pubkey
	account pubkey.Pubkey
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	authority, err := pubkey.NewKeypair()
	require.NoError(t, err)
	claimant, err := pubkey.NewKeypair()
	require.NoError(t, err)

	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		now:       time.Unix(startTime+1, 0),
		authority: authority,
		claimant:  claimant,
		rewards:   pubkey.NewRandom(),
		creator:   pubkey.NewRandom(),
		dest:      pubkey.NewRandom(),
	}
	f.executor = ledger.NewExecutor(ledger.NewMemoryStore(), zap.NewNop(),
		ledger.WithClock(func() time.Time { return f.now }))
	f.executor.Register(ProgramID, NewProcessor(opts...))
	f.executor.Register(system.ProgramID, system.Program{})

	dest, err := token.NewAccount(f.rewards, claimant.Public, 0, ledger.DefaultRent)
	require.NoError(t, err)
	f.put(
		ledger.GenesisAccount{Pubkey: authority.Public, Account: ledger.Account{Owner: system.ProgramID, Lamports: 1_000_000_000}},
		ledger.GenesisAccount{Pubkey: claimant.Public, Account: ledger.Account{Owner: system.ProgramID, Lamports: 1_000_000_000}},
		ledger.GenesisAccount{Pubkey: f.dest, Account: *dest},
	)
	f.newCampaign()
	return f
}

// newCampaign provisions a fresh state slot and a custody account holding
// 1000 reward tokens under the authority.
func (f *fixture) newCampaign() {
	f.t.Helper()
	f.state = pubkey.NewRandom()
	f.custody = pubkey.NewRandom()
	rent := ledger.DefaultRent
	custody, err := token.NewAccount(f.rewards, f.authority.Public, 1000, rent)
	require.NoError(f.t, err)
	f.put(
		ledger.GenesisAccount{Pubkey: f.state, Account: ledger.Account{
			Owner: ProgramID, Lamports: rent.MinimumBalance(StateSize), Data: make([]byte, StateSize),
		}},
		ledger.GenesisAccount{Pubkey: f.custody, Account: *custody},
	)
}

func (f *fixture) put(accounts ...ledger.GenesisAccount) {
	f.t.Helper()
	require.NoError(f.t, ledger.ApplyGenesis(f.ctx, f.executor.Store(), accounts))
}

func (f *fixture) get(key pubkey.Pubkey) *ledger.Account {
	f.t.Helper()
	acct, _, err := f.executor.Store().Get(f.ctx, key)
	require.NoError(f.t, err)
	return acct
}

func (f *fixture) createArgs() CreateDistributorArgs {
	return CreateDistributorArgs{
		RewardAmountTotal:   1000,
		RewardAmountPerUnit: 10,
		StartTime:           startTime,
		CollectionSymbol:    "APE",
	}
}

func (f *fixture) createDistributor(args CreateDistributorArgs) error {
	f.t.Helper()
	ix, err := NewCreateDistributorInstruction(ProgramID, CreateDistributorAccounts{
		Authority:         f.authority.Public,
		State:             f.state,
		Custody:           f.custody,
		CollectionCreator: f.creator,
	}, args)
	require.NoError(f.t, err)
	tx := ledger.NewTransaction(ix)
	require.NoError(f.t, tx.Sign(f.authority))
	return f.executor.Execute(f.ctx, tx)
}

// mintAsset gives owner one unit of a fresh NFT whose metadata lists creators.
func (f *fixture) mintAsset(owner pubkey.Pubkey, creators *[]metadata.Creator) asset {
	f.t.Helper()
	a := asset{mint: pubkey.NewRandom(), account: pubkey.NewRandom()}
	holding, err := token.NewAccount(a.mint, owner, 1, ledger.DefaultRent)
	require.NoError(f.t, err)
	md, err := metadata.NewAccount(&metadata.Metadata{
		UpdateAuthority: f.creator,
		Mint:            a.mint,
		Name:            "Ape",
		Symbol:          "APE",
		URI:             "https://example.com/ape.json",
		Creators:        creators,
	}, ledger.DefaultRent)
	require.NoError(f.t, err)
	mdAddr, _, err := metadata.FindAddress(a.mint)
	require.NoError(f.t, err)
	f.put(
		ledger.GenesisAccount{Pubkey: a.account, Account: *holding},
		ledger.GenesisAccount{Pubkey: mdAddr, Account: *md},
	)
	return a
}

func (f *fixture) listedCreator() *[]metadata.Creator {
	return &[]metadata.Creator{{Address: f.creator, Verified: true, Share: 100}}
}

func (f *fixture) claimInstruction(a asset) ledger.Instruction {
	f.t.Helper()
	ix, err := NewClaimTokensInstruction(ProgramID, ClaimTokensAccounts{
		Claimant:          f.claimant.Public,
		State:             f.state,
		Custody:           f.custody,
		Destination:       f.dest,
		AssetTokenAccount: a.account,
		AssetMint:         a.mint,
	})
	require.NoError(f.t, err)
	return ix
}

func (f *fixture) submit(ix ledger.Instruction) error {
	f.t.Helper()
	tx := ledger.NewTransaction(ix)
	require.NoError(f.t, tx.Sign(f.claimant))
	return f.executor.Execute(f.ctx, tx)
}

func (f *fixture) claim(a asset) error {
	f.t.Helper()
	return f.submit(f.claimInstruction(a))
}

func (f *fixture) distributor() *State {
	f.t.Helper()
	st, err := DecodeState(f.get(f.state).Data)
	require.NoError(f.t, err)
	return st
}

func (f *fixture) balance(key pubkey.Pubkey) uint64 {
	f.t.Helper()
	acc, err := token.Decode(f.get(key).Data)
	require.NoError(f.t, err)
	return acc.Amount
}

func (f *fixture) receipt(a asset) *ClaimReceipt {
	f.t.Helper()
	addr, _, err := FindReceiptAddress(ProgramID, a.mint)
	require.NoError(f.t, err)
	acct := f.get(addr)
	if acct == nil {
		return nil
	}
	rec, err := DecodeReceipt(acct.Data)
	require.NoError(f.t, err)
	return rec
}

// snapshot captures every record a claim may touch.
func (f *fixture) snapshot(a asset) map[string]*ledger.Account {
	f.t.Helper()
	receipt, _, err := FindReceiptAddress(ProgramID, a.mint)
	require.NoError(f.t, err)
	return map[string]*ledger.Account{
		"state":    f.get(f.state),
		"custody":  f.get(f.custody),
		"dest":     f.get(f.dest),
		"claimant": f.get(f.claimant.Public),
		"receipt":  f.get(receipt),
	}
}
