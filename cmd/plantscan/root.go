package main

import (
	"github.com/spf13/cobra"

	"github.com/rumor-ml/commons.systems/plantscan/internal/config"
	"github.com/rumor-ml/commons.systems/plantscan/internal/ui"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plantscan",
		Short: "Register plant scan images and upload them to cloud storage",
		Long: `plantscan reads scan metadata from directory paths.

A plantscan.yaml file at the top of a scan tree declares a path template, fixed
values and an accession spreadsheet. plantscan matches every image under the
tree against the template, resolves each plant QR code to its accession, and
uploads the images with their metadata.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is fine; a malformed one is reported and skipped
			if err := config.LoadDotEnv(); err != nil {
				ui.Warning(err.Error())
			}
		},
	}

	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newSummarizeCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newSessionsCmd())

	return cmd
}
