// Package normalize implements the normalize command: apply an adapter
// profile to a raw export and write canonical records.
package normalize

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"githubledger/ledger-adapt/cmd/root"
	"githubledger/ledger-adapt/internal/engine"
	"githubledger/ledger-adapt/internal/export"
	"githubledger/ledger-adapt/internal/inference"
	"githubledger/ledger-adapt/internal/ingest"
	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/store"
)

// Cmd represents the normalize command
var Cmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize a raw export into canonical transaction records",
	Long: `Normalize reads a raw CSV export, applies the adapter profile's parsing,
extraction, categorization and cleaning rules, and writes canonical records
with per-record confidence and review status.`,
	RunE: normalizeFunc,
}

func normalizeFunc(cmd *cobra.Command, args []string) error {
	flags := root.SharedFlags
	if flags.Profile == "" || flags.Input == "" || flags.Output == "" {
		return fmt.Errorf("normalize requires --profile, --input and --output")
	}

	logger := logging.GetLogger()

	profileStore := store.NewProfileStore(logger)
	p, err := profileStore.LoadProfile(flags.Profile)
	if err != nil {
		return err
	}

	var client inference.Client
	if root.Cfg.AI.Enabled {
		client = inference.NewGeminiClient(
			root.Cfg.AI.APIKey,
			root.Cfg.AI.Model,
			time.Duration(root.Cfg.AI.TimeoutSeconds)*time.Second,
			logger,
		)
	}

	eng, err := engine.New(p, client, logger)
	if err != nil {
		return err
	}
	if root.Cfg.Engine.Workers > 0 {
		eng.SetWorkers(root.Cfg.Engine.Workers)
	}

	delimiter := []rune(root.Cfg.CSV.Delimiter)[0]
	header, rows, err := ingest.ReadCSV(flags.Input, delimiter, logger)
	if err != nil {
		return err
	}

	result, err := eng.Process(cmd.Context(), flags.Input, header, rows)
	if err != nil {
		return err
	}

	writer := export.NewWriter(delimiter, logger)
	switch flags.Format {
	case "json":
		err = writer.WriteJSON(result.Records, result.Diagnostics, flags.Output)
	case "csv", "":
		err = writer.WriteCSV(result.Records, flags.Output)
	default:
		return fmt.Errorf("unsupported output format: %s", flags.Format)
	}
	if err != nil {
		return err
	}

	review := 0
	for _, rec := range result.Records {
		if rec.NeedsReview() {
			review++
		}
	}
	logger.WithFields(
		logging.Field{Key: "records", Value: len(result.Records)},
		logging.Field{Key: "pending_review", Value: review},
		logging.Field{Key: "diagnostics", Value: len(result.Diagnostics)},
	).Info("Normalization completed")
	return nil
}
