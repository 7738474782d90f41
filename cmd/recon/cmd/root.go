// Package cmd implements the recon command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payment-recon-service/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "recon",
	Short: "Payment settlement reconciliation tool",
	Long: `Recon matches payment gateway transactions against bank settlement
statements for a cycle, classifies every discrepancy with a reason code,
and reports merchant settlement figures.

Examples:
  recon reconcile --pg-file gateway.csv --bank-file statement.csv --cycle-date 2024-03-15
  recon reconcile --pg-file gateway.csv --bank-file statement.csv --cycle-date 2024-03-15 --output-format json
  recon serve --listen :8080`,
	Version: getVersionString(),
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("RECON")
	viper.AutomaticEnv()
}

// newLogger builds the process logger from the verbose flag.
func newLogger() (logger.Logger, error) {
	cfg := logger.DefaultConfig()
	if viper.GetBool("verbose") {
		cfg.Level = "debug"
	}
	return logger.New(cfg)
}

// SetVersionInfo sets the build metadata shown by --version.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
