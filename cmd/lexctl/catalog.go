package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"lexdraft-backend/collector"
	"lexdraft-backend/config"
	"lexdraft-backend/logger"
	"lexdraft-backend/models"
	"lexdraft-backend/service"
	"lexdraft-backend/storage"
)

func newMappingsCmd(logFor func() logger.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect and publish the document-type catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check [file]",
		Short: "Validate a catalog file, or the embedded catalog when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := readCatalog(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			types := make([]string, 0, len(cat.Types))
			for t := range cat.Types {
				types = append(types, string(t))
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Fprintf(out, "✓ %s: %d field mappings\n", t, len(cat.Types[models.DocumentType(t)].Mappings))
			}
			fmt.Fprintf(out, "Catalog valid (%d document types)\n", len(types))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "publish <file>",
		Short: "Validate a catalog and publish it to the configured storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if _, err := collector.Load(bytes.NewReader(data)); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Mappings.Path == "" {
				return errors.New("mappings.path is not configured")
			}
			store, err := storage.NewStorage(cmd.Context(), cfg.Storage.ToStorage())
			if err != nil {
				return err
			}

			archived, err := storage.PublishVersioned(cmd.Context(), store, cfg.Mappings.Path, data)
			if err != nil {
				return err
			}
			logFor().Info("Catalog published", logger.Fields{"key": cfg.Mappings.Path, "archive": archived})
			fmt.Fprintf(cmd.OutOrStdout(), "✓ published %s (previous version archived at %s)\n", cfg.Mappings.Path, archived)
			return nil
		},
	})
	return cmd
}

func newCollectCmd(logFor func() logger.Logger) *cobra.Command {
	var catalogFile string

	cmd := &cobra.Command{
		Use:   "collect <form.json>",
		Short: "Classify a form submission and print the structured case record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var catArgs []string
			if catalogFile != "" {
				catArgs = []string{catalogFile}
			}
			cat, err := readCatalog(catArgs)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var form models.RawFormData
			if err := json.Unmarshal(raw, &form); err != nil {
				return fmt.Errorf("invalid form JSON: %w", err)
			}
			if fd, ok := form["form_data"].(map[string]any); ok {
				form = models.RawFormData(fd)
			}

			docType, record, err := collector.NewRegistry(cat, logFor()).Collect(form)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"document_type":   docType,
				"structured_data": record,
				"sections":        service.SectionNames(service.SectionsFor(docType, record)),
			})
		},
	}

	cmd.Flags().StringVar(&catalogFile, "catalog", "", "catalog file to use instead of the embedded one")
	return cmd
}

func readCatalog(args []string) (*collector.Catalog, error) {
	if len(args) == 0 {
		return collector.LoadDefault()
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return collector.Load(f)
}
