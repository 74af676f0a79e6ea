package distributor

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nftclaim/internal/eligibility"
	"nftclaim/internal/ledger"
)

const claimAccounts = 12

func (p *Processor) claimTokens(_ context.Context, pc *ledger.Context, data []byte) error {
	if len(data) != 1 {
		return fmt.Errorf("%w: claim takes no arguments", ErrInvalidInstruction)
	}
	if len(pc.Accounts) < claimAccounts {
		return fmt.Errorf("%w: claim needs %d accounts, got %d", ErrInvalidAccounts, claimAccounts, len(pc.Accounts))
	}
	claimant := pc.Accounts[0]
	stateInfo := pc.Accounts[1]
	custody := pc.Accounts[2]
	destination := pc.Accounts[3]
	authorityInfo := pc.Accounts[4]
	assetAccount := pc.Accounts[5]
	metadataInfo := pc.Accounts[6]
	receiptInfo := pc.Accounts[7]
	clockInfo := pc.Accounts[8]
	rentInfo := pc.Accounts[9]
	tokenProgram := pc.Accounts[10]
	systemProgram := pc.Accounts[11]

	attempt := &claimAttempt{hook: p.hook}

	if !claimant.IsSigner {
		return ErrIncorrectSigner
	}
	if stateInfo.Owner != pc.ProgramID {
		return ErrIncorrectOwner
	}
	if err := stateInfo.RequireWritable(); err != nil {
		return withCause(ErrInvalidAccounts, err)
	}
	st, err := DecodeState(stateInfo.Data)
	if err != nil {
		return err
	}
	if !st.Initialized {
		return ErrNotInitialized
	}
	clock, err := ledger.ClockFromAccount(clockInfo)
	if err != nil {
		return withCause(ErrInvalidAccounts, err)
	}
	if clock.UnixTimestamp < st.StartTime {
		return fmt.Errorf("%w: starts at %d, now %d", ErrDistributionNotStarted, st.StartTime, clock.UnixTimestamp)
	}
	holding, err := p.oracle.Ownership(assetAccount)
	if err != nil {
		return withCause(ErrIncorrectOwner, err)
	}
	if holding.Owner != claimant.Key {
		return fmt.Errorf("%w: asset held by %s", ErrIncorrectOwner, holding.Owner)
	}
	if holding.Amount == 0 {
		return fmt.Errorf("%w: asset account %s is empty", ErrIncorrectOwner, assetAccount.Key)
	}
	if err := attempt.advance(PhaseAuthorized); err != nil {
		return err
	}

	md, err := p.oracle.Metadata(holding.Mint, metadataInfo)
	if err != nil {
		return eligibilityCode(err)
	}
	if err := eligibility.RequireCreator(md, st.CollectionCreator); err != nil {
		return eligibilityCode(err)
	}
	if custody.Key != st.RewardCustodyAccount {
		return fmt.Errorf("%w: custody %s, distributor pays from %s", ErrInvalidAccounts, custody.Key, st.RewardCustodyAccount)
	}
	authority, authorityBump, err := FindCustodyAuthority(pc.ProgramID, stateInfo.Key)
	if err != nil {
		return err
	}
	if authorityInfo.Key != authority {
		return fmt.Errorf("%w: custody authority %s, want %s", ErrInvalidAccounts, authorityInfo.Key, authority)
	}
	receipt, receiptBump, err := FindReceiptAddress(pc.ProgramID, holding.Mint)
	if err != nil {
		return err
	}
	if receiptInfo.Key != receipt {
		return fmt.Errorf("%w: receipt %s, want %s", ErrInvalidAccounts, receiptInfo.Key, receipt)
	}
	if err := receiptInfo.RequireWritable(); err != nil {
		return withCause(ErrInvalidAccounts, err)
	}
	rent, err := ledger.RentFromAccount(rentInfo)
	if err != nil {
		return withCause(ErrInvalidAccounts, err)
	}
	if tokenProgram.Key != p.tokenProgram {
		return fmt.Errorf("%w: token program %s", ErrInvalidAccounts, tokenProgram.Key)
	}
	if systemProgram.Key != p.systemProgram {
		return fmt.Errorf("%w: %s", ErrInvalidSystemProgram, systemProgram.Key)
	}
	claimed := st.AmountClaimed + st.RewardAmountPerUnit
	if claimed < st.AmountClaimed {
		return ErrAmountOverflow
	}
	if claimed > st.RewardAmountTotal {
		return fmt.Errorf("%w: %d of %d claimed", ErrRewardPoolExhausted, st.AmountClaimed, st.RewardAmountTotal)
	}
	if err := attempt.advance(PhaseEligible); err != nil {
		return err
	}

	signers, err := pc.SignedAs(withBump(authoritySeeds(stateInfo.Key), authorityBump))
	if err != nil {
		return err
	}
	if err := p.tokens.Transfer(custody, destination, authorityInfo, st.RewardAmountPerUnit, signers); err != nil {
		return err
	}
	st.AmountClaimed = claimed
	if err := writeState(stateInfo, st); err != nil {
		return err
	}
	if err := attempt.advance(PhaseTransferred); err != nil {
		return err
	}

	if receiptInfo.Owner != pc.ProgramID {
		signers, err := pc.SignedAs(withBump(receiptSeeds(holding.Mint), receiptBump))
		if err != nil {
			return err
		}
		if err := p.createAccount(claimant, receiptInfo, rent, ReceiptSize, pc.ProgramID, signers); err != nil {
			return err
		}
	}
	rec, err := DecodeReceipt(receiptInfo.Data)
	if err != nil {
		return err
	}
	if rec.ReceivedTokens {
		return ErrTokensAlreadyClaimed
	}
	rec.ReceivedTokens = true
	copy(receiptInfo.Data, rec.Encode())
	if err := attempt.advance(PhaseRecorded); err != nil {
		return err
	}

	p.logger.Info("tokens claimed",
		zap.String("distributor", stateInfo.Key.String()),
		zap.String("claimant", claimant.Key.String()),
		zap.String("mint", holding.Mint.String()),
		zap.String("destination", destination.Key.String()),
		zap.Uint64("amount", st.RewardAmountPerUnit),
		zap.Uint64("amount_claimed", st.AmountClaimed),
	)
	return nil
}
