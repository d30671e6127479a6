// Command scribe runs the blog API server.
//
// Configuration is read from a YAML file (--config, SCRIBE_CONFIG,
// ./config.yaml or /etc/scribe/config.yaml) and environment variables.
// The common ones:
//
//	FIREBASE_API_KEY      - Identity Toolkit web API key
//	FIREBASE_PROJECT_ID   - Firebase project (token issuer and audience)
//	SCRIBE_PORT           - Listen port (default: 3000)
//	SCRIBE_STORAGE        - "memory", "postgres" or "sqlite" (default: "memory")
//	SCRIBE_POSTGRES_DSN   - PostgreSQL connection string
//	SCRIBE_DEBUG          - Debug categories (auth,identity,blog,store,transport,config,all)
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "scribe",
		Short: "Blog API server",
		Long: `Scribe serves a small blog API: account registration and login through
an identity authority, and post create/list/update/delete backed by a
document store. Mutating post routes require a bearer token, and only the
author of a post may change it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")

	serve := serveCmd(&configPath)
	rootCmd.RunE = serve.RunE

	rootCmd.AddCommand(
		serve,
		migrateCmd(&configPath),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("scribe failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
