package cmd

import (
	"github.com/spf13/cobra"

	"nftclaim/internal/pubkey"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Read decoded records from the API",
}

var showDistributorCmd = &cobra.Command{
	Use:   "distributor <address>",
	Short: "Show a distributor record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := pubkey.Parse(args[0])
		if err != nil {
			return err
		}
		l, err := newLogger()
		if err != nil {
			return err
		}
		raw, err := newClient(l).Distributor(cmd.Context(), key)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), raw)
	},
}

var showReceiptCmd = &cobra.Command{
	Use:   "receipt <asset-mint>",
	Short: "Show whether an asset has claimed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mint, err := pubkey.Parse(args[0])
		if err != nil {
			return err
		}
		l, err := newLogger()
		if err != nil {
			return err
		}
		receipt, err := newClient(l).Receipt(cmd.Context(), mint)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), receipt)
	},
}

func init() {
	showCmd.AddCommand(showDistributorCmd)
	showCmd.AddCommand(showReceiptCmd)
}
