package cmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"nftclaim/internal/client"
	"nftclaim/internal/logger"
	"nftclaim/internal/pubkey"
)

const (
	envPrefix = "DISTCTL"

	flagDebug   = "debug"
	flagAPIURL  = "api-url"
	flagKeypair = "keypair"
	flagTimeout = "timeout"
)

var rootCmd = &cobra.Command{
	Use:   "distctl",
	Short: "Manage NFT-gated token distributors",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig()

	rootCmd.PersistentFlags().Bool(flagDebug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().String(flagAPIURL, "http://localhost:8080", `Distributor API base url`)
	rootCmd.PersistentFlags().String(flagKeypair, "id.key", `Path to the signing keypair`)
	rootCmd.PersistentFlags().Duration(flagTimeout, 10*time.Second, `Request timeout`)

	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(createStateCmd)
	rootCmd.AddCommand(createDistributorCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(showCmd)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := kebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func kebabToSnakeCase(s string) string {
	return strings.ReplaceAll(s, "-", "_")
}

// bindLocalFlags makes a command's own flags readable through viper.
func bindLocalFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(kebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(kebabToSnakeCase(f.Name)); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}

func newLogger() (*zap.Logger, error) {
	return logger.NewLogger(&logger.LoggerConfig{Debug: viper.GetBool(flagDebug)})
}

func newClient(l *zap.Logger) *client.Client {
	return client.New(viper.GetString(kebabToSnakeCase(flagAPIURL)),
		&http.Client{Timeout: viper.GetDuration(flagTimeout)}, l)
}

func signer() (*pubkey.Keypair, error) {
	return pubkey.LoadKeypair(viper.GetString(flagKeypair))
}

func keyFlag(name string) (pubkey.Pubkey, error) {
	raw := viper.GetString(kebabToSnakeCase(name))
	if raw == "" {
		return pubkey.Zero, fmt.Errorf("--%s is required", name)
	}
	key, err := pubkey.Parse(raw)
	if err != nil {
		return pubkey.Zero, fmt.Errorf("--%s: %w", name, err)
	}
	return key, nil
}
