package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/paywire/packages/mock"
)

var (
	serveSeqFlag     bool
	serveDelayFlag   string
	serveStatusFlag  int
	serveBodyFlag    string
	serveVerboseFlag bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mock payment server standalone",
	Long: `Run the mock payment API server on an ephemeral localhost port. It
serves a canned JSON response to every request and counts what it sees.

Examples:
  paywire serve
  paywire serve --seq --delay 50ms
  paywire serve --status 500 --body '{"error": "boom"}'`,
	Args: cobra.NoArgs,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().BoolVar(&serveSeqFlag, "seq", false, "Stamp each response with a unique sequence number")
	serveCmd.Flags().StringVarP(&serveDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	serveCmd.Flags().IntVar(&serveStatusFlag, "status", 200, "Response status code")
	serveCmd.Flags().StringVar(&serveBodyFlag, "body", "", "Fixed response body (overrides --seq)")
	serveCmd.Flags().BoolVarP(&serveVerboseFlag, "verbose", "v", false, "Log each request")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if serveDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(serveDelayFlag)
		if err != nil {
			return fmt.Errorf("invalid delay value %q: %w", serveDelayFlag, err)
		}
	}

	opts := []mock.Option{
		mock.WithDelay(delay),
		mock.WithStatus(serveStatusFlag),
		mock.WithVerbose(serveVerboseFlag),
	}
	if serveSeqFlag {
		opts = append(opts, mock.WithSequenceNumbers())
	}
	if serveBodyFlag != "" {
		opts = append(opts, mock.WithBody(serveBodyFlag))
	}

	server := mock.NewServer(opts...)
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "mock payment server listening on %s\n", server.URL())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Fprintf(cmd.OutOrStdout(), "\nshutting down after %d request(s)\n", server.Requests())
	return server.Close()
}
