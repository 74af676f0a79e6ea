package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nftclaim/internal/db"
	"nftclaim/internal/distributor"
	"nftclaim/internal/domain/distribution"
	"nftclaim/internal/ledger"
	"nftclaim/internal/metadata"
	"nftclaim/internal/pubkey"
	"nftclaim/internal/system"
	"nftclaim/internal/token"
)

const start int64 = 1_700_000_000

type recordingPublisher struct {
	events []distribution.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event distribution.Event) error {
	p.events = append(p.events, event)
	return nil
}

type staticClaims []db.ClaimLog

func (s staticClaims) ListClaims(context.Context, string, int) ([]db.ClaimLog, error) {
	return s, nil
}

type testAPI struct {
	engine    *gin.Engine
	publisher *recordingPublisher
	now       time.Time

	authority *pubkey.Keypair
	holder    *pubkey.Keypair
	state     pubkey.Pubkey
	custody   pubkey.Pubkey
	dest      pubkey.Pubkey
	creator   pubkey.Pubkey
	mint      pubkey.Pubkey
	holding   pubkey.Pubkey
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	api := &testAPI{
		publisher: &recordingPublisher{},
		now:       time.Unix(start+10, 0),
		state:     pubkey.NewRandom(),
		custody:   pubkey.NewRandom(),
		dest:      pubkey.NewRandom(),
		creator:   pubkey.NewRandom(),
		mint:      pubkey.NewRandom(),
		holding:   pubkey.NewRandom(),
	}
	var err error
	api.authority, err = pubkey.NewKeypair()
	require.NoError(t, err)
	api.holder, err = pubkey.NewKeypair()
	require.NoError(t, err)

	e := ledger.NewExecutor(ledger.NewMemoryStore(), zap.NewNop(),
		ledger.WithClock(func() time.Time { return api.now }))
	e.Register(distributor.ProgramID, distributor.NewProcessor())
	e.Register(system.ProgramID, system.Program{})

	rent := ledger.DefaultRent
	rewards := pubkey.NewRandom()
	custody, err := token.NewAccount(rewards, api.authority.Public, 100, rent)
	require.NoError(t, err)
	dest, err := token.NewAccount(rewards, api.holder.Public, 0, rent)
	require.NoError(t, err)
	holding, err := token.NewAccount(api.mint, api.holder.Public, 1, rent)
	require.NoError(t, err)
	md, err := metadata.NewAccount(&metadata.Metadata{
		Mint:     api.mint,
		Name:     "Asset",
		Creators: &[]metadata.Creator{{Address: api.creator, Share: 100}},
	}, rent)
	require.NoError(t, err)
	mdAddr, _, err := metadata.FindAddress(api.mint)
	require.NoError(t, err)
	require.NoError(t, ledger.ApplyGenesis(context.Background(), e.Store(), []ledger.GenesisAccount{
		{Pubkey: api.holder.Public, Account: ledger.Account{Owner: system.ProgramID, Lamports: 1_000_000_000}},
		{Pubkey: api.state, Account: ledger.Account{
			Owner: distributor.ProgramID, Lamports: rent.MinimumBalance(distributor.StateSize), Data: make([]byte, distributor.StateSize),
		}},
		{Pubkey: api.custody, Account: *custody},
		{Pubkey: api.dest, Account: *dest},
		{Pubkey: api.holding, Account: *holding},
		{Pubkey: mdAddr, Account: *md},
	}))

	api.engine = New(Dependencies{
		Service:   distribution.NewService(e, distributor.ProgramID, zap.NewNop()),
		Publisher: api.publisher,
		Claims: staticClaims{{
			EventID: uuid.New(), Claimant: "c", AssetMint: "m", Destination: "d",
			Amount: decimal.NewFromInt(10), ClaimedAt: time.Unix(start, 0),
		}},
	})
	return api
}

func (api *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	return w
}

func (api *testAPI) signed(t *testing.T, ix ledger.Instruction, kp *pubkey.Keypair) *ledger.Transaction {
	t.Helper()
	tx := ledger.NewTransaction(ix)
	require.NoError(t, tx.Sign(kp))
	return tx
}

func (api *testAPI) createTx(t *testing.T) *ledger.Transaction {
	t.Helper()
	ix, err := distributor.NewCreateDistributorInstruction(distributor.ProgramID, distributor.CreateDistributorAccounts{
		Authority: api.authority.Public, State: api.state, Custody: api.custody, CollectionCreator: api.creator,
	}, distributor.CreateDistributorArgs{RewardAmountTotal: 100, RewardAmountPerUnit: 10, StartTime: start, CollectionSymbol: "A"})
	require.NoError(t, err)
	return api.signed(t, ix, api.authority)
}

func (api *testAPI) claimTx(t *testing.T) *ledger.Transaction {
	t.Helper()
	ix, err := distributor.NewClaimTokensInstruction(distributor.ProgramID, distributor.ClaimTokensAccounts{
		Claimant: api.holder.Public, State: api.state, Custody: api.custody,
		Destination: api.dest, AssetTokenAccount: api.holding, AssetMint: api.mint,
	})
	require.NoError(t, err)
	return api.signed(t, ix, api.holder)
}

func Test_Router(t *testing.T) {
	t.Run("Create and claim through the API publish events", func(t *testing.T) {
		api := newTestAPI(t)

		w := api.do(t, http.MethodPost, "/transactions", api.createTx(t))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = api.do(t, http.MethodPost, "/transactions", api.claimTx(t))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp submitResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Published)
		require.Len(t, api.publisher.events, 2)
		assert.Equal(t, distribution.EventTokensClaimed, api.publisher.events[1].Type)

		w = api.do(t, http.MethodGet, "/distributors/"+api.state.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var dist struct {
			Remaining uint64 `json:"remaining"`
			State     struct {
				AmountClaimed    uint64 `json:"amount_claimed"`
				CollectionSymbol string `json:"collection_symbol"`
			} `json:"state"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dist))
		assert.Equal(t, uint64(90), dist.Remaining)
		assert.Equal(t, uint64(10), dist.State.AmountClaimed)
		assert.Equal(t, "A", dist.State.CollectionSymbol)

		w = api.do(t, http.MethodGet, "/receipts/"+api.mint.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"received_tokens":true`)
	})

	t.Run("Program failures carry their code", func(t *testing.T) {
		api := newTestAPI(t)
		require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/transactions", api.createTx(t)).Code)
		require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/transactions", api.claimTx(t)).Code)

		w := api.do(t, http.MethodPost, "/transactions", api.claimTx(t))
		assert.Equal(t, http.StatusConflict, w.Code)
		var body struct {
			Code uint32 `json:"code"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, distributor.ErrTokensAlreadyClaimed.Code(), body.Code)
	})

	t.Run("Claims before the start time are unprocessable", func(t *testing.T) {
		api := newTestAPI(t)
		require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/transactions", api.createTx(t)).Code)
		api.now = time.Unix(start-1, 0)

		w := api.do(t, http.MethodPost, "/transactions", api.claimTx(t))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), `"code":13`)
	})

	t.Run("Resubmitted transactions conflict and publish nothing", func(t *testing.T) {
		api := newTestAPI(t)
		create := api.createTx(t)
		require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/transactions", create).Code)

		w := api.do(t, http.MethodPost, "/transactions", create)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NotContains(t, w.Body.String(), `"code"`)
		assert.Len(t, api.publisher.events, 1)
	})

	t.Run("Tampered signatures are unauthorized", func(t *testing.T) {
		api := newTestAPI(t)
		tx := api.createTx(t)
		tx.Signatures[api.authority.Public][0] ^= 0xff
		assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodPost, "/transactions", tx).Code)
	})

	t.Run("Lookups validate keys and report missing records", func(t *testing.T) {
		api := newTestAPI(t)
		assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/accounts/not-a-key", nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/accounts/"+pubkey.NewRandom().String(), nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/distributors/"+api.state.String(), nil).Code)
	})

	t.Run("Derivations and claim history are served", func(t *testing.T) {
		api := newTestAPI(t)
		w := api.do(t, http.MethodGet, "/derive/receipt/"+api.mint.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var d distribution.Derivation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
		want, _, err := distributor.FindReceiptAddress(distributor.ProgramID, api.mint)
		require.NoError(t, err)
		assert.Equal(t, want, d.Address)

		w = api.do(t, http.MethodGet, "/distributors/"+api.state.String()+"/claims?limit=5", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"amount":"10"`)

		assert.Equal(t, http.StatusBadRequest,
			api.do(t, http.MethodGet, "/distributors/"+api.state.String()+"/claims?limit=0", nil).Code)
	})
}
