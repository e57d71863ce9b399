// Package validate implements the validate command: check an adapter profile
// against the schema contract and report every violation.
package validate

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"githubledger/ledger-adapt/cmd/root"
	"githubledger/ledger-adapt/internal/logging"
	"githubledger/ledger-adapt/internal/parsererror"
	"githubledger/ledger-adapt/internal/profile"
	"githubledger/ledger-adapt/internal/store"
)

// Cmd represents the validate command
var Cmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an adapter profile",
	Long: `Validate checks an adapter profile document against the schema contract
and lists every violated constraint, not just the first.`,
	RunE: validateFunc,
}

func validateFunc(cmd *cobra.Command, args []string) error {
	name := root.SharedFlags.Profile
	if name == "" && len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		return fmt.Errorf("validate requires --profile or a profile path argument")
	}

	logger := logging.GetLogger()

	profileStore := store.NewProfileStore(logger)
	p, err := profileStore.LoadProfile(name)
	if err != nil {
		return err
	}

	if err := profile.Validate(p); err != nil {
		var verr *parsererror.ProfileValidationError
		if errors.As(err, &verr) {
			fmt.Printf("Profile %s is invalid (%d violation(s)):\n", name, len(verr.Violations))
			for _, v := range verr.Violations {
				fmt.Printf("  - %s\n", v)
			}
		}
		return err
	}

	fmt.Printf("Profile %s is valid (version %s, mode %s)\n",
		name, p.ProfileVersion, p.ParsingStrategy.Mode)
	return nil
}
