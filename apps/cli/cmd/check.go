package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/paywire/packages/api"
)

var (
	checkFieldFlag   string
	checkTimeoutFlag string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Retrieve the account balance through the configured backend",
	Long: `Issue one balance retrieval against the configured base URL and print
the returned document.

Examples:
  paywire check
  paywire check --field available.0.amount
  PAYWIRE_BASE_URL=http://localhost:12111 paywire check`,
	Args: cobra.NoArgs,
	RunE: checkCommand,
}

func init() {
	checkCmd.Flags().StringVarP(&checkFieldFlag, "field", "f", "", "Print only this field of the document (gjson path)")
	checkCmd.Flags().StringVar(&checkTimeoutFlag, "timeout", "30s", "Overall timeout for the retrieval")
}

func checkCommand(cmd *cobra.Command, args []string) error {
	timeout, err := time.ParseDuration(checkTimeoutFlag)
	if err != nil {
		return fmt.Errorf("invalid timeout value %q: %w", checkTimeoutFlag, err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	doc, err := api.RetrieveBalance(ctx)
	if err != nil {
		return err
	}

	if checkFieldFlag != "" {
		result, err := api.Field(doc, checkFieldFlag)
		if err != nil {
			return err
		}
		if !result.Exists() {
			return fmt.Errorf("field %q not present in document", checkFieldFlag)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.String())
		return nil
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
