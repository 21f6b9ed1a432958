package main

import (
	"github.com/spf13/cobra"

	"github.com/rumor-ml/commons.systems/plantscan/internal/extract"
	"github.com/rumor-ml/commons.systems/plantscan/internal/summary"
)

func newSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <root> <subdir>",
		Short: "Summarize the scans under root/subdir before uploading",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := extract.Extract(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return summary.Summarize(batch.Records).Write(cmd.OutOrStdout())
		},
	}
}
