package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/farid/spf-sync/internal/docstore"
	"github.com/farid/spf-sync/internal/util"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "spfsync",
		Short: "SPF Tongod records reconciliation toolkit",
		Long: `spfsync detects and repairs data-consistency drift between the
files, locations and borrowings collections of the SPF Tongod records
system: orphaned location references, files without a storage location,
stale availability flags and unused locations.

Runs are batch jobs against the backing document database; nothing here
is a long-lived service. Exit codes: 0 when validation passes, 1 when
unresolved errors remain, 2 on a fatal connectivity failure.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/spfsync.yaml)")
	rootCmd.PersistentFlags().String("project", "", "GCP project id of the backing Firestore database")
	rootCmd.PersistentFlags().String("credentials", "", "service account credentials file (default: application default credentials)")
	rootCmd.PersistentFlags().String("history-db", "spfsync-history.db", "local run-history database file")
	rootCmd.PersistentFlags().String("artifacts", "artifacts", "directory for report artifacts")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
	viper.BindPFlag("credentials", rootCmd.PersistentFlags().Lookup("credentials"))
	viper.BindPFlag("history-db", rootCmd.PersistentFlags().Lookup("history-db"))
	viper.BindPFlag("artifacts", rootCmd.PersistentFlags().Lookup("artifacts"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("spfsync")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("batch-size", docstore.DefaultBatchSize)
	viper.SetDefault("collections.files", "files")
	viper.SetDefault("collections.locations", "locations")
	viper.SetDefault("collections.borrowings", "borrowings")
	viper.SetDefault("retry.max-attempts", 3)
	viper.SetDefault("retry.initial-wait", "200ms")
	viper.SetDefault("retry.max-wait", "5s")

	// Read in environment variables that match
	viper.SetEnvPrefix("SPFSYNC")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, docstore.ErrTransport) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
