package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/paywire/packages/config"
	"github.com/abdul-hamid-achik/paywire/packages/harness"
	"github.com/abdul-hamid-achik/paywire/packages/history"
	"github.com/abdul-hamid-achik/paywire/packages/httpclient"
)

var (
	soakBackendFlag     string
	soakConcurrencyFlag int
	soakRequestsFlag    int
	soakRateFlag        float64
	soakSchemaFlag      string
	soakHistoryFlag     string
	soakNoColorFlag     bool
)

var soakCmd = &cobra.Command{
	Use:   "soak",
	Short: "Drive concurrent load through one shared backend",
	Long: `Issue many concurrent balance retrievals through a single shared
backend instance and verify that every request got its own response.
Point the base URL at a sequence-numbered mock server ("paywire serve
--seq") to get uniqueness checking.

Examples:
  paywire soak --requests 100 --concurrency 10
  paywire soak --backend raw --rate 50
  paywire soak --schema balance.schema.json --history runs.db`,
	Args: cobra.NoArgs,
	RunE: soakCommand,
}

func init() {
	soakCmd.Flags().StringVarP(&soakBackendFlag, "backend", "b", "", "Backend to test: pooled, ephemeral, or raw (default: configured)")
	soakCmd.Flags().IntVarP(&soakConcurrencyFlag, "concurrency", "n", 10, "Number of parallel workers")
	soakCmd.Flags().IntVarP(&soakRequestsFlag, "requests", "r", 10, "Total number of requests")
	soakCmd.Flags().Float64Var(&soakRateFlag, "rate", 0, "Cap on requests per second (0 = unpaced)")
	soakCmd.Flags().StringVar(&soakSchemaFlag, "schema", "", "JSON Schema file to validate each response against")
	soakCmd.Flags().StringVar(&soakHistoryFlag, "history", "", "SQLite file to record the run in")
	soakCmd.Flags().BoolVar(&soakNoColorFlag, "no-color", false, "Disable colored output")
}

func soakCommand(cmd *cobra.Command, args []string) error {
	cfg := *config.Current()
	if soakBackendFlag != "" {
		cfg.Backend = config.BackendKind(soakBackendFlag)
	}
	if cfg.Backend == "" {
		cfg.Backend = config.BackendPooled
	}

	backend, err := httpclient.New(&cfg)
	if err != nil {
		return err
	}

	var schemaJSON string
	if soakSchemaFlag != "" {
		data, err := os.ReadFile(soakSchemaFlag)
		if err != nil {
			return fmt.Errorf("reading schema file: %w", err)
		}
		schemaJSON = string(data)
	}

	reporter := harness.NewReporter(
		harness.WithWriter(cmd.OutOrStdout()),
		harness.WithNoColor(soakNoColorFlag),
	)
	reporter.Header(string(cfg.Backend), soakConcurrencyFlag, soakRequestsFlag)

	runner := harness.NewRunner(
		harness.WithBackend(backend),
		harness.WithConcurrency(soakConcurrencyFlag),
		harness.WithRequests(soakRequestsFlag),
		harness.WithRate(soakRateFlag),
		harness.WithSchema(schemaJSON),
		harness.WithReporter(reporter),
	)

	startedAt := time.Now()
	res, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	if soakHistoryFlag != "" {
		store, err := history.Open(soakHistoryFlag)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Record(startedAt, string(cfg.Backend), soakConcurrencyFlag, res); err != nil {
			return err
		}
	}

	if !res.Passed {
		return fmt.Errorf("soak failed: %d requests, %d unique responses, %d errors",
			res.Requests, res.Unique, res.Errors)
	}
	return nil
}
