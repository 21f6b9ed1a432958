package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rumor-ml/commons.systems/plantscan/internal/extract"
	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
)

// scanEntry is one extracted scan as printed by the extract command
type scanEntry struct {
	Path   string        `yaml:"path"`
	Record fields.Record `yaml:"record"`
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <root> <subdir>",
		Short: "Print the metadata extracted for every scan under root/subdir",
		Example: `  # Print records for one wave of a cylinder experiment
  plantscan extract /data/scans cylinder/W1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := extract.Extract(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			entries := make([]scanEntry, batch.Len())
			for i := range batch.Paths {
				entries[i] = scanEntry{Path: batch.Paths[i], Record: batch.Records[i]}
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(entries); err != nil {
				return fmt.Errorf("failed to encode records: %w", err)
			}
			return enc.Close()
		},
	}
}
