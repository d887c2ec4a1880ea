// Package cmd implements the paywire CLI commands using Cobra.
//
// Available commands:
//   - check: Retrieve the account balance through the configured backend
//   - soak: Drive concurrent load through one shared backend and verify it
//   - serve: Run the mock payment server standalone
//   - version: Show paywire version information
package cmd
