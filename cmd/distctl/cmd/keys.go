package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"nftclaim/internal/distributor"
	"nftclaim/internal/metadata"
	"nftclaim/internal/pubkey"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a keypair file",
	RunE: func(cmd *cobra.Command, args []string) error {
		bindLocalFlags(cmd)
		out := viper.GetString("out")
		if out == "" {
			out = viper.GetString(flagKeypair)
		}
		kp, err := pubkey.NewKeypair()
		if err != nil {
			return err
		}
		if err := pubkey.SaveKeypair(out, kp); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s written to %s\n", kp.Public, out)
		return nil
	},
}

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Compute program derived addresses",
}

var deriveAuthorityCmd = &cobra.Command{
	Use:   "authority <distributor-state>",
	Short: "Custody authority of a distributor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printDerived(cmd.OutOrStdout(), args[0], func(k pubkey.Pubkey) (pubkey.Pubkey, uint8, error) {
			return distributor.FindCustodyAuthority(distributor.ProgramID, k)
		})
	},
}

var deriveReceiptCmd = &cobra.Command{
	Use:   "receipt <asset-mint>",
	Short: "Claim receipt of an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printDerived(cmd.OutOrStdout(), args[0], func(k pubkey.Pubkey) (pubkey.Pubkey, uint8, error) {
			return distributor.FindReceiptAddress(distributor.ProgramID, k)
		})
	},
}

var deriveMetadataCmd = &cobra.Command{
	Use:   "metadata <asset-mint>",
	Short: "Metadata record of an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printDerived(cmd.OutOrStdout(), args[0], metadata.FindAddress)
	},
}

func init() {
	keygenCmd.Flags().String("out", "", `Output path (defaults to --keypair)`)

	deriveCmd.AddCommand(deriveAuthorityCmd)
	deriveCmd.AddCommand(deriveReceiptCmd)
	deriveCmd.AddCommand(deriveMetadataCmd)
}

func printDerived(w io.Writer, raw string, find func(pubkey.Pubkey) (pubkey.Pubkey, uint8, error)) error {
	key, err := pubkey.Parse(raw)
	if err != nil {
		return err
	}
	addr, bump, err := find(key)
	if err != nil {
		return err
	}
	return printJSON(w, map[string]any{"address": addr, "bump": bump})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
