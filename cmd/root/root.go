// Package root contains the root command for the application
package root

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"githubledger/ledger-adapt/internal/config"
	"githubledger/ledger-adapt/internal/logging"
)

// CommonFlags represents the flags shared by multiple commands
type CommonFlags struct {
	Profile string
	Input   string
	Output  string
	Format  string
}

var (
	// Log is the shared logger instance for commands
	Log = logrus.New()

	// Cfg is the loaded application configuration, available after
	// PersistentPreRun.
	Cfg *config.Config

	// SharedFlags holds flag values common to the subcommands
	SharedFlags = CommonFlags{}

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "ledger-adapt",
		Short: "Normalize heterogeneous financial exports into canonical transaction records.",
		Long: `ledger-adapt applies a declarative adapter profile to a raw export and
produces canonical transaction records with per-record confidence and
review status.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnv()

			cfg, err := config.InitializeConfig()
			if err != nil {
				return err
			}
			Cfg = cfg

			Log = config.ConfigureLoggingFromConfig(cfg)
			logging.SetLogger(logging.NewLogrusAdapterFromLogger(Log))
			return nil
		},
	}
)

// Init initializes the root command and all persistent flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Profile, "profile", "p", "", "Adapter profile file (JSON or YAML)")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input CSV file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Format, "format", "f", "csv", "Output format: csv or json")
}
