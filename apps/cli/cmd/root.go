package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/paywire/packages/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag      string
	envFileFlag     string
	watchConfigFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "paywire",
	Short: "Payment API client with swappable HTTP backends.",
	Long: `paywire is a payment API client and integration harness. It routes
requests through one of several interchangeable HTTP backends and can
drive concurrent load against a mock server to verify that a shared
backend never loses or duplicates a response.`,
	PersistentPreRunE: loadConfiguration,
}

func loadConfiguration(cmd *cobra.Command, args []string) error {
	if envFileFlag != "" {
		if _, err := config.LoadDotEnv(envFileFlag); err != nil {
			return err
		}
	}

	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	config.Set(cfg)

	if watchConfigFlag && configFlag != "" {
		go func() {
			_ = config.Watch(context.Background(), configFlag)
		}()
	}
	return nil
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Path to a .env file with PAYWIRE_* settings")
	rootCmd.PersistentFlags().BoolVar(&watchConfigFlag, "watch-config", false, "Reload the config file when it changes on disk")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(soakCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
