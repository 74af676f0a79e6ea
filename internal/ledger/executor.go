package ledger

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/near/borsh-go"
	"go.uber.org/zap"

	"nftclaim/internal/observability/metrics"
	"nftclaim/internal/pubkey"
)

var (
	ErrUnknownProgram       = errors.New("ledger: unknown program")
	ErrMissingSignature     = errors.New("ledger: missing required signature")
	ErrInvalidSignature     = errors.New("ledger: invalid signature")
	ErrDuplicateTransaction = errors.New("ledger: transaction already committed")
)

// TransactionRecordOwnerID owns the records of committed messages.
var TransactionRecordOwnerID = pubkey.FromName("nftclaim/transaction-record")

// AccountMeta references an account from an instruction.
type AccountMeta struct {
	Pubkey     pubkey.Pubkey `json:"pubkey"`
	IsSigner   bool          `json:"is_signer"`
	IsWritable bool          `json:"is_writable"`
}

// Instruction is one program invocation with its referenced accounts.
type Instruction struct {
	ProgramID pubkey.Pubkey `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// Transaction is an instruction plus the signatures of its signer accounts.
// The nonce makes otherwise identical transactions distinct; a signed
// transaction commits at most once.
type Transaction struct {
	Instruction Instruction              `json:"instruction"`
	Nonce       uint64                   `json:"nonce"`
	Signatures  map[pubkey.Pubkey][]byte `json:"signatures"`
}

type signedMessage struct {
	Instruction Instruction
	Nonce       uint64
}

// NewTransaction wraps ix with a random nonce and an empty signature set.
func NewTransaction(ix Instruction) *Transaction {
	var nonce [8]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		panic(fmt.Sprintf("ledger: reading nonce: %v", err))
	}
	return &Transaction{
		Instruction: ix,
		Nonce:       binary.LittleEndian.Uint64(nonce[:]),
		Signatures:  make(map[pubkey.Pubkey][]byte),
	}
}

// Message returns the canonical bytes signers sign.
func (t *Transaction) Message() ([]byte, error) {
	return borsh.Serialize(signedMessage{Instruction: t.Instruction, Nonce: t.Nonce})
}

// Sign adds a signature from each keypair.
func (t *Transaction) Sign(keypairs ...*pubkey.Keypair) error {
	msg, err := t.Message()
	if err != nil {
		return err
	}
	if t.Signatures == nil {
		t.Signatures = make(map[pubkey.Pubkey][]byte)
	}
	for _, kp := range keypairs {
		t.Signatures[kp.Public] = kp.Sign(msg)
	}
	return nil
}

// RecordAddress is where the executor remembers a committed message.
func RecordAddress(msg []byte) pubkey.Pubkey {
	return pubkey.Pubkey(sha256.Sum256(msg))
}

// Program processes instructions addressed to it.
type Program interface {
	Process(ctx context.Context, pc *Context, data []byte) error
}

// ProgramFunc allows using functions as Program.
type ProgramFunc func(ctx context.Context, pc *Context, data []byte) error

// Process satisfies Program.
func (f ProgramFunc) Process(ctx context.Context, pc *Context, data []byte) error {
	return f(ctx, pc, data)
}

// Context is what a program sees while processing one instruction.
type Context struct {
	ProgramID pubkey.Pubkey
	Accounts  []*AccountInfo
	signers   Signers
}

// Signers returns the transaction signers.
func (c *Context) Signers() Signers {
	return c.signers.clone()
}

// SignedAs returns the transaction signers plus every address derived from
// the executing program and the given seed sets (bump included). Only the
// executing program can obtain these capabilities.
func (c *Context) SignedAs(seedSets ...[][]byte) (Signers, error) {
	out := c.signers.clone()
	for _, seeds := range seedSets {
		addr, err := pubkey.CreateProgramAddress(seeds, c.ProgramID)
		if err != nil {
			return nil, err
		}
		out[addr] = struct{}{}
	}
	return out, nil
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock overrides the wall clock used for the clock sysvar.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithRent overrides the persistence rule.
func WithRent(r Rent) Option {
	return func(e *Executor) { e.rent = r }
}

// Executor runs instructions atomically against a Store.
type Executor struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	rent   Rent
	slot   atomic.Uint64

	mu       sync.RWMutex
	programs map[pubkey.Pubkey]Program
}

// NewExecutor builds an executor with no programs registered.
func NewExecutor(store Store, l *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		store:    store,
		logger:   l,
		now:      time.Now,
		rent:     DefaultRent,
		programs: make(map[pubkey.Pubkey]Program),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register makes a program invocable under id.
func (e *Executor) Register(id pubkey.Pubkey, p Program) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs[id] = p
}

// Store exposes the backing store for reads.
func (e *Executor) Store() Store {
	return e.store
}

// Rent returns the persistence rule in force.
func (e *Executor) Rent() Rent {
	return e.rent
}

// Result is the committed view of one transaction: every account it
// referenced, as written, plus the slot it ran in.
type Result struct {
	Slot     uint64
	Accounts map[pubkey.Pubkey]*Account
}

// Account returns the committed copy of key, or nil when the transaction did
// not reference it.
func (r *Result) Account(key pubkey.Pubkey) *Account {
	return r.Accounts[key]
}

// Execute is Apply without the result.
func (e *Executor) Execute(ctx context.Context, t *Transaction) error {
	_, err := e.Apply(ctx, t)
	return err
}

// Apply verifies signatures, runs the instruction against a private snapshot
// and commits every write at once. Any error leaves the store untouched. A
// message that already committed fails with ErrDuplicateTransaction.
func (e *Executor) Apply(ctx context.Context, t *Transaction) (*Result, error) {
	start := time.Now()
	defer func() { metrics.ObserveLedgerOperation("execute", time.Since(start)) }()

	ix := t.Instruction
	e.mu.RLock()
	program, ok := e.programs[ix.ProgramID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, ix.ProgramID)
	}

	msg, err := t.Message()
	if err != nil {
		return nil, err
	}
	signers, err := e.verifySignatures(t, msg)
	if err != nil {
		return nil, err
	}

	clock := Clock{Slot: e.slot.Add(1), UnixTimestamp: e.now().Unix()}
	tx := newTxn(e.store)
	recordKey := RecordAddress(msg)
	record, err := tx.load(ctx, recordKey)
	if err != nil {
		return nil, err
	}
	if record.Owner == TransactionRecordOwnerID {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTransaction, recordKey)
	}

	infos := make([]*AccountInfo, 0, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		acct, err := e.loadAccount(ctx, tx, meta, clock)
		if err != nil {
			return nil, err
		}
		infos = append(infos, &AccountInfo{
			Key:        meta.Pubkey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			Account:    acct,
		})
	}

	pc := &Context{ProgramID: ix.ProgramID, Accounts: infos, signers: signers}
	if err := program.Process(ctx, pc, ix.Data); err != nil {
		e.logger.Debug("instruction aborted",
			zap.String("program", ix.ProgramID.String()),
			zap.Uint64("slot", clock.Slot),
			zap.Error(err),
		)
		return nil, err
	}

	record.Owner = TransactionRecordOwnerID
	tx.markWritable(recordKey)
	if err := tx.commit(ctx); err != nil {
		return nil, err
	}
	e.logger.Debug("instruction committed",
		zap.String("program", ix.ProgramID.String()),
		zap.Uint64("slot", clock.Slot),
	)

	res := &Result{Slot: clock.Slot, Accounts: make(map[pubkey.Pubkey]*Account, len(infos))}
	for _, info := range infos {
		res.Accounts[info.Key] = info.Account.Clone()
	}
	return res, nil
}

func (e *Executor) loadAccount(ctx context.Context, tx *txn, meta AccountMeta, clock Clock) (*Account, error) {
	if isSysvar(meta.Pubkey) {
		if meta.IsWritable {
			return nil, fmt.Errorf("%w: sysvar %s", ErrReadonly, meta.Pubkey)
		}
		if meta.Pubkey == ClockSysvarID {
			return sysvarAccount(clock)
		}
		return sysvarAccount(e.rent)
	}
	acct, err := tx.load(ctx, meta.Pubkey)
	if err != nil {
		return nil, err
	}
	if meta.IsWritable {
		tx.markWritable(meta.Pubkey)
	}
	return acct, nil
}

func (e *Executor) verifySignatures(t *Transaction, msg []byte) (Signers, error) {
	signers := make(Signers)
	for _, meta := range t.Instruction.Accounts {
		if !meta.IsSigner {
			continue
		}
		sig, ok := t.Signatures[meta.Pubkey]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSignature, meta.Pubkey)
		}
		if !pubkey.Verify(meta.Pubkey, msg, sig) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, meta.Pubkey)
		}
		signers[meta.Pubkey] = struct{}{}
	}
	return signers, nil
}
