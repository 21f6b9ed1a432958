package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rumor-ml/commons.systems/plantscan/internal/extract"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Check the format specification governing a directory",
		Long: `Locate the nearest plantscan.yaml at or above dir, validate it, compile its
path template and load its accession spreadsheet. No images are read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := extract.Prepare(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Specification:     %s\n", plan.Spec.Path)
			fmt.Fprintf(out, "Template:          %s\n", plan.Matcher.Template())
			fmt.Fprintf(out, "Template fields:   %v\n", plan.Matcher.Fields())
			fmt.Fprintf(out, "Fixed fields:      %v\n", fixedFieldNames(plan))
			fmt.Fprintf(out, "Accessions:        %d\n", len(plan.Accessions))
			return nil
		},
	}
}

func fixedFieldNames(plan *extract.Plan) []string {
	var names []string
	for name := range plan.Spec.FixedValues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
