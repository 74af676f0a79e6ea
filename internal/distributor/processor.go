package distributor

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"nftclaim/internal/eligibility"
	"nftclaim/internal/ledger"
	"nftclaim/internal/observability/metrics"
	"nftclaim/internal/pubkey"
	"nftclaim/internal/system"
	"nftclaim/internal/token"
)

// TokenService is the custody collaborator the engine moves rewards through.
type TokenService interface {
	SetAuthority(account, current *ledger.AccountInfo, newAuthority pubkey.Pubkey, signers ledger.Signers) error
	Transfer(source, destination, authority *ledger.AccountInfo, amount uint64, signers ledger.Signers) error
}

// AccountCreator funds, allocates and assigns a fresh account.
type AccountCreator func(payer, account *ledger.AccountInfo, rent ledger.Rent, space int, owner pubkey.Pubkey, signers ledger.Signers) error

// Option configures a Processor.
type Option func(*Processor)

// WithTokenService replaces the custody collaborator.
func WithTokenService(ts TokenService, programID pubkey.Pubkey) Option {
	return func(p *Processor) {
		p.tokens = ts
		p.tokenProgram = programID
	}
}

// WithAccountCreator replaces the account creation collaborator.
func WithAccountCreator(create AccountCreator, programID pubkey.Pubkey) Option {
	return func(p *Processor) {
		p.createAccount = create
		p.systemProgram = programID
	}
}

// WithEligibility replaces the eligibility adapter.
func WithEligibility(a *eligibility.Adapter) Option {
	return func(p *Processor) { p.oracle = a }
}

// WithPhaseHook observes claim phase transitions.
func WithPhaseHook(h PhaseHook) Option {
	return func(p *Processor) { p.hook = h }
}

// WithLogger sets the processor logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// Processor is the distribution engine. It is stateless between
// instructions; everything it knows comes from the accounts it is handed.
type Processor struct {
	tokens        TokenService
	tokenProgram  pubkey.Pubkey
	createAccount AccountCreator
	systemProgram pubkey.Pubkey
	oracle        *eligibility.Adapter
	hook          PhaseHook
	logger        *zap.Logger
}

// NewProcessor returns an engine wired to the standard collaborators.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		tokens:        token.Program{},
		tokenProgram:  token.ProgramID,
		createAccount: system.CreateAccount,
		systemProgram: system.ProgramID,
		oracle:        eligibility.New(),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process dispatches on the instruction tag.
func (p *Processor) Process(ctx context.Context, pc *ledger.Context, data []byte) error {
	kind, err := DecodeKind(data)
	if err != nil {
		metrics.CountInstruction("unknown", resultLabel(err))
		return err
	}
	switch kind {
	case KindCreateDistributor:
		err = p.createDistributor(ctx, pc, data)
	case KindClaimTokens:
		err = p.claimTokens(ctx, pc, data)
	}
	metrics.CountInstruction(kind.String(), resultLabel(err))
	return err
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := CodeOf(err); ok {
		return strconv.FormatUint(uint64(code.Code()), 10)
	}
	return "external"
}

func (p *Processor) createDistributor(_ context.Context, pc *ledger.Context, data []byte) error {
	args, err := DecodeCreateDistributor(data)
	if err != nil {
		return err
	}
	if len(pc.Accounts) < 6 {
		return fmt.Errorf("%w: create distributor needs 6 accounts, got %d", ErrInvalidAccounts, len(pc.Accounts))
	}
	authority := pc.Accounts[0]
	stateInfo := pc.Accounts[1]
	custody := pc.Accounts[2]
	creator := pc.Accounts[3]
	rentInfo := pc.Accounts[4]
	tokenProgram := pc.Accounts[5]

	if !authority.IsSigner {
		return ErrIncorrectSigner
	}
	if stateInfo.Owner != pc.ProgramID {
		return ErrIncorrectOwner
	}
	if err := stateInfo.RequireWritable(); err != nil {
		return withCause(ErrInvalidAccounts, err)
	}
	current, err := DecodeState(stateInfo.Data)
	if err != nil {
		return err
	}
	if current.Initialized {
		return ErrAlreadyInitialized
	}
	rent, err := ledger.RentFromAccount(rentInfo)
	if err != nil {
		return withCause(ErrInvalidAccounts, err)
	}
	if !rent.IsExempt(stateInfo.Lamports, stateInfo.DataLen()) {
		return ErrNotRentExempt
	}
	if tokenProgram.Key != p.tokenProgram {
		return fmt.Errorf("%w: token program %s", ErrInvalidAccounts, tokenProgram.Key)
	}
	if custody.Owner != p.tokenProgram {
		return fmt.Errorf("%w: custody %s is not a token account", ErrInvalidAccounts, custody.Key)
	}
	pool, err := token.Decode(custody.Data)
	if err != nil {
		return withCause(ErrInvalidAccounts, err)
	}
	if pool.Amount < args.RewardAmountTotal {
		return fmt.Errorf("%w: custody holds %d, pool needs %d", ErrExpectedAmountMismatch, pool.Amount, args.RewardAmountTotal)
	}
	symbol, err := NewSymbol(args.CollectionSymbol)
	if err != nil {
		return err
	}

	custodyAuthority, _, err := FindCustodyAuthority(pc.ProgramID, stateInfo.Key)
	if err != nil {
		return err
	}
	if err := p.tokens.SetAuthority(custody, authority, custodyAuthority, pc.Signers()); err != nil {
		return err
	}

	st := &State{
		Initialized:          true,
		Authority:            authority.Key,
		RewardCustodyAccount: custody.Key,
		RewardMint:           pool.Mint,
		RewardAmountTotal:    args.RewardAmountTotal,
		RewardAmountPerUnit:  args.RewardAmountPerUnit,
		AmountClaimed:        0,
		StartTime:            args.StartTime,
		CollectionSymbol:     symbol,
		CollectionCreator:    creator.Key,
	}
	if err := writeState(stateInfo, st); err != nil {
		return err
	}
	p.logger.Info("distributor created",
		zap.String("distributor", stateInfo.Key.String()),
		zap.String("custody", custody.Key.String()),
		zap.String("custody_authority", custodyAuthority.String()),
		zap.Uint64("reward_amount_total", args.RewardAmountTotal),
		zap.Uint64("reward_amount_per_unit", args.RewardAmountPerUnit),
		zap.Int64("start_time", args.StartTime),
	)
	return nil
}

func writeState(info *ledger.AccountInfo, st *State) error {
	data, err := st.Encode()
	if err != nil {
		return err
	}
	if len(data) != StateSize {
		return fmt.Errorf("%w: encoded state length %d", ErrDataTypeMismatch, len(data))
	}
	copy(info.Data, data)
	return nil
}

// eligibilityCode maps adapter failures onto distributor codes.
func eligibilityCode(err error) error {
	switch {
	case errors.Is(err, eligibility.ErrNoCreators):
		return withCause(ErrNoCreators, err)
	case errors.Is(err, eligibility.ErrCreatorNotFound):
		return withCause(ErrCreatorNotFound, err)
	default:
		return withCause(ErrInvalidMetadataAccount, err)
	}
}
