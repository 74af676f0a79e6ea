package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"nftclaim/internal/distributor"
	"nftclaim/internal/ledger"
	"nftclaim/internal/pubkey"
	"nftclaim/internal/system"
)

var createStateCmd = &cobra.Command{
	Use:   "create-state",
	Short: "Allocate an empty distributor record owned by the program",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindLocalFlags(cmd)
		payer, err := signer()
		if err != nil {
			return err
		}
		state, err := pubkey.LoadKeypair(viper.GetString("state_keypair"))
		if err != nil {
			return err
		}
		ix, err := system.NewCreateAccountInstruction(payer.Public, state.Public, distributor.StateSize, distributor.ProgramID)
		if err != nil {
			return err
		}
		return submit(cmd, ix, payer, state)
	},
}

var createDistributorCmd = &cobra.Command{
	Use:   "create-distributor",
	Short: "Initialize a distributor over a funded custody account",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindLocalFlags(cmd)
		authority, err := signer()
		if err != nil {
			return err
		}
		var accts distributor.CreateDistributorAccounts
		accts.Authority = authority.Public
		if accts.State, err = keyFlag("state"); err != nil {
			return err
		}
		if accts.Custody, err = keyFlag("custody"); err != nil {
			return err
		}
		if accts.CollectionCreator, err = keyFlag("creator"); err != nil {
			return err
		}
		start, err := parseStartTime(viper.GetString("start"))
		if err != nil {
			return err
		}
		ix, err := distributor.NewCreateDistributorInstruction(distributor.ProgramID, accts, distributor.CreateDistributorArgs{
			RewardAmountTotal:   viper.GetUint64("total"),
			RewardAmountPerUnit: viper.GetUint64("per_unit"),
			StartTime:           start,
			CollectionSymbol:    viper.GetString("symbol"),
		})
		if err != nil {
			return err
		}
		return submit(cmd, ix, authority)
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the per-asset reward for an owned asset",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindLocalFlags(cmd)
		claimant, err := signer()
		if err != nil {
			return err
		}
		accts := distributor.ClaimTokensAccounts{Claimant: claimant.Public}
		for name, dst := range map[string]*pubkey.Pubkey{
			"state":         &accts.State,
			"custody":       &accts.Custody,
			"destination":   &accts.Destination,
			"asset-account": &accts.AssetTokenAccount,
			"asset-mint":    &accts.AssetMint,
		} {
			if *dst, err = keyFlag(name); err != nil {
				return err
			}
		}
		ix, err := distributor.NewClaimTokensInstruction(distributor.ProgramID, accts)
		if err != nil {
			return err
		}
		return submit(cmd, ix, claimant)
	},
}

func init() {
	createStateCmd.Flags().String("state-keypair", "", `Keypair file of the new distributor record`)

	createDistributorCmd.Flags().String("state", "", `Distributor record address`)
	createDistributorCmd.Flags().String("custody", "", `Funded reward token account`)
	createDistributorCmd.Flags().String("creator", "", `Required collection creator`)
	createDistributorCmd.Flags().Uint64("total", 0, `Total reward pool`)
	createDistributorCmd.Flags().Uint64("per-unit", 0, `Reward per eligible asset`)
	createDistributorCmd.Flags().String("start", "", `Start time, unix seconds or RFC3339 (default now)`)
	createDistributorCmd.Flags().String("symbol", "", `Collection symbol, at most 10 bytes`)

	claimCmd.Flags().String("state", "", `Distributor record address`)
	claimCmd.Flags().String("custody", "", `Reward custody account`)
	claimCmd.Flags().String("destination", "", `Token account receiving the reward`)
	claimCmd.Flags().String("asset-account", "", `Token account holding the asset`)
	claimCmd.Flags().String("asset-mint", "", `Mint of the asset`)
}

func parseStartTime(raw string) (int64, error) {
	if raw == "" {
		return time.Now().Unix(), nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return unix, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("--start: %w", err)
	}
	return t.Unix(), nil
}

func submit(cmd *cobra.Command, ix ledger.Instruction, signers ...*pubkey.Keypair) error {
	l, err := newLogger()
	if err != nil {
		return err
	}
	defer l.Sync() //nolint:errcheck

	tx := ledger.NewTransaction(ix)
	if err := tx.Sign(signers...); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), viper.GetDuration(flagTimeout))
	defer cancel()

	res, err := newClient(l).Submit(ctx, tx)
	if err != nil {
		l.Error("transaction rejected", zap.String("program", ix.ProgramID.String()), zap.Error(err))
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
