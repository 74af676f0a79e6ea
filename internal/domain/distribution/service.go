package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nftclaim/internal/distributor"
	"nftclaim/internal/ledger"
	"nftclaim/internal/metadata"
	"nftclaim/internal/pubkey"
	"nftclaim/internal/token"
)

// ErrAccountNotFound indicates no record exists at an address.
var ErrAccountNotFound = errors.New("account not found")

// ErrNotDistributor indicates the record at an address is not a distributor.
var ErrNotDistributor = errors.New("account is not a distributor")

// Service submits signed transactions and reads decoded program state.
type Service struct {
	executor  *ledger.Executor
	programID pubkey.Pubkey
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires dependencies.
func NewService(executor *ledger.Executor, programID pubkey.Pubkey, logger *zap.Logger) *Service {
	return &Service{executor: executor, programID: programID, logger: logger, now: time.Now}
}

// ProgramID returns the distributor program id the service targets.
func (s *Service) ProgramID() pubkey.Pubkey {
	return s.programID
}

// Submit executes tx. For committed distributor instructions it returns the
// event describing the effect, built from the accounts as this transaction
// committed them; other programs yield a nil event.
func (s *Service) Submit(ctx context.Context, tx *ledger.Transaction) (*Event, error) {
	res, err := s.executor.Apply(ctx, tx)
	if err != nil {
		return nil, err
	}
	ix := tx.Instruction
	if ix.ProgramID != s.programID {
		return nil, nil
	}
	kind, err := distributor.DecodeKind(ix.Data)
	if err != nil {
		return nil, err
	}
	switch kind {
	case distributor.KindCreateDistributor:
		return s.createdEvent(res, ix)
	case distributor.KindClaimTokens:
		return s.claimedEvent(res, ix)
	}
	return nil, nil
}

func (s *Service) createdEvent(res *ledger.Result, ix ledger.Instruction) (*Event, error) {
	key := ix.Accounts[1].Pubkey
	st, err := s.decodeDistributor(key, res.Account(key))
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:          uuid.New(),
		Type:        EventDistributorCreated,
		Distributor: key,
		Created: &CreatedPayload{
			Authority:           st.Authority,
			Custody:             st.RewardCustodyAccount,
			RewardMint:          st.RewardMint,
			RewardAmountTotal:   st.RewardAmountTotal,
			RewardAmountPerUnit: st.RewardAmountPerUnit,
			StartTime:           st.StartTime,
			CollectionSymbol:    st.CollectionSymbol.String(),
			CollectionCreator:   st.CollectionCreator,
		},
		Timestamp: s.now().UTC(),
	}, nil
}

func (s *Service) claimedEvent(res *ledger.Result, ix ledger.Instruction) (*Event, error) {
	key := ix.Accounts[1].Pubkey
	st, err := s.decodeDistributor(key, res.Account(key))
	if err != nil {
		return nil, err
	}
	holding := res.Account(ix.Accounts[5].Pubkey)
	if holding == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, ix.Accounts[5].Pubkey)
	}
	asset, err := token.Decode(holding.Data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:          uuid.New(),
		Type:        EventTokensClaimed,
		Distributor: key,
		Claimed: &ClaimedPayload{
			Claimant:      ix.Accounts[0].Pubkey,
			AssetMint:     asset.Mint,
			Destination:   ix.Accounts[3].Pubkey,
			Amount:        st.RewardAmountPerUnit,
			AmountClaimed: st.AmountClaimed,
		},
		Timestamp: s.now().UTC(),
	}, nil
}

// GetAccount returns the raw record at key.
func (s *Service) GetAccount(ctx context.Context, key pubkey.Pubkey) (*ledger.Account, error) {
	acct, _, err := s.executor.Store().Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return acct, nil
}

// GetDistributor decodes the distributor record at key.
func (s *Service) GetDistributor(ctx context.Context, key pubkey.Pubkey) (*distributor.State, error) {
	acct, err := s.GetAccount(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.decodeDistributor(key, acct)
}

func (s *Service) decodeDistributor(key pubkey.Pubkey, acct *ledger.Account) (*distributor.State, error) {
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	if acct.Owner != s.programID {
		return nil, fmt.Errorf("%w: %s", ErrNotDistributor, key)
	}
	st, err := distributor.DecodeState(acct.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDistributor, err)
	}
	if !st.Initialized {
		return nil, fmt.Errorf("%w: %s is not initialized", ErrNotDistributor, key)
	}
	return st, nil
}

// Receipt is the claim status of one asset.
type Receipt struct {
	Address        pubkey.Pubkey `json:"address"`
	AssetMint      pubkey.Pubkey `json:"asset_mint"`
	ReceivedTokens bool          `json:"received_tokens"`
}

// GetReceipt reports whether mint has claimed. An asset that never claimed
// reads as unclaimed.
func (s *Service) GetReceipt(ctx context.Context, mint pubkey.Pubkey) (*Receipt, error) {
	addr, _, err := distributor.FindReceiptAddress(s.programID, mint)
	if err != nil {
		return nil, err
	}
	out := &Receipt{Address: addr, AssetMint: mint}
	acct, _, err := s.executor.Store().Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.Owner != s.programID {
		return out, nil
	}
	rec, err := distributor.DecodeReceipt(acct.Data)
	if err != nil {
		return nil, err
	}
	out.ReceivedTokens = rec.ReceivedTokens
	return out, nil
}

// Derivation lists the derived addresses relevant to a key.
type Derivation struct {
	Address pubkey.Pubkey `json:"address"`
	Bump    uint8         `json:"bump"`
}

// CustodyAuthority derives the custody authority of a distributor.
func (s *Service) CustodyAuthority(state pubkey.Pubkey) (Derivation, error) {
	addr, bump, err := distributor.FindCustodyAuthority(s.programID, state)
	return Derivation{Address: addr, Bump: bump}, err
}

// ReceiptAddress derives the receipt address of an asset.
func (s *Service) ReceiptAddress(mint pubkey.Pubkey) (Derivation, error) {
	addr, bump, err := distributor.FindReceiptAddress(s.programID, mint)
	return Derivation{Address: addr, Bump: bump}, err
}

// MetadataAddress derives the registry record address of an asset.
func (s *Service) MetadataAddress(mint pubkey.Pubkey) (Derivation, error) {
	addr, bump, err := metadata.FindAddress(mint)
	return Derivation{Address: addr, Bump: bump}, err
}
