// Command lexctl manages the knowledge base and the document-type catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lexdraft-backend/logger"
)

func newRootCmd() *cobra.Command {
	var level string

	root := &cobra.Command{
		Use:           "lexctl",
		Short:         "Knowledge-base and catalog tooling for the drafting service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&level, "log-level", "info", "log level (debug, info, warn, error)")

	logFor := func() logger.Logger {
		return logger.NewStructured(level, "console")
	}

	root.AddCommand(
		newSchemaCmd(logFor),
		newIngestCmd(logFor),
		newMappingsCmd(logFor),
		newCollectCmd(logFor),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
