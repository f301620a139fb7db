package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lexdraft-backend/config"
	"lexdraft-backend/logger"
	"lexdraft-backend/repository"
)

func newSchemaCmd(logFor func() logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the legal_chunks table and its indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := repository.Connect(cmd.Context(), cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			log := logFor()
			out := cmd.OutOrStdout()
			err = repository.CreateSchema(cmd.Context(), db, func(idx repository.SchemaIndex, err error) {
				if err != nil {
					log.WithError(err).Warn("Failed to create index", logger.Fields{"index": idx.Name})
					return
				}
				fmt.Fprintf(out, "✓ %s\n", idx.Name)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "✓ legal_chunks schema ready")
			return nil
		},
	}
}

func newIngestCmd(logFor func() logger.Logger) *cobra.Command {
	var (
		sourceType string
		maxChars   int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Chunk the .txt reference files in dir into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch sourceType {
			case "", repository.SourceLegislation, repository.SourceCaseLaw, repository.SourceScholarship:
			default:
				return fmt.Errorf("unknown source type %q", sourceType)
			}
			log := logFor()
			out := cmd.OutOrStdout()

			var upsert *repository.LegalChunkRepository
			if !dryRun {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				db, err := repository.Connect(cmd.Context(), cfg.Database.URL)
				if err != nil {
					return err
				}
				defer db.Close()
				upsert = repository.NewLegalChunkRepository(db, 0)
			}

			entries, err := os.ReadDir(args[0])
			if err != nil {
				return fmt.Errorf("failed to read directory: %w", err)
			}

			var files, total int
			for _, entry := range entries {
				name := entry.Name()
				if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".txt") {
					continue
				}
				content, err := os.ReadFile(filepath.Join(args[0], name))
				if err != nil {
					log.WithError(err).Warn("Skipping unreadable file", logger.Fields{"file": name})
					continue
				}

				kind := sourceType
				if kind == "" {
					kind = repository.DetermineSourceType(name, string(content))
				}
				if kind == "" {
					log.Warn("Could not determine source type, skipping", logger.Fields{"file": name})
					continue
				}

				chunks := repository.ChunkDocument(name, kind, string(content), maxChars)
				if upsert != nil {
					for _, chunk := range chunks {
						if err := upsert.Upsert(cmd.Context(), chunk); err != nil {
							return err
						}
					}
				}
				files++
				total += len(chunks)
				fmt.Fprintf(out, "✓ %s (%s): %d chunks\n", name, kind, len(chunks))
			}

			fmt.Fprintf(out, "Ingested %d chunks from %d files\n", total, files)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceType, "type", "", "source type for every file (legislacao, jurisprudencia, doutrina); guessed when empty")
	cmd.Flags().IntVar(&maxChars, "max-chars", 1500, "maximum characters per chunk")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the chunking plan without writing to the database")
	return cmd
}
