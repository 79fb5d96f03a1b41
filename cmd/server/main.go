// Command server runs the certificate service and its operational tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Certificate issuance and lookup service",
	Long: `Issues versioned training certificates, serves public lookups by
certificate id or display id, and streams the grouped admin listing.

Configuration is read from TC_* environment variables and an optional .env file.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
