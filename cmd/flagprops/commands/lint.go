package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagprops/internal/cli"
	"github.com/TimurManjosov/flagprops/internal/validation"
)

var lintFilter string

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check filters for mistakes without evaluating them",
	Long: `Report filters the matcher would reject, or would treat as a
non-match no matter the properties: bad regex patterns, unparsable dates,
non-numeric comparison values, cohort operators.

Examples:
  flagprops lint --filter @filters.yaml
  flagprops lint --filter '{"key":"signup","value":"soon","operator":"is_date_after"}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, source, err := cli.ReadInput(lintFilter)
		if err != nil {
			return err
		}
		filters, err := cli.DecodeFilters(data, source)
		if err != nil {
			return err
		}

		result := validation.ValidateFilters(filters)
		if result.Valid {
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%d filter(s) OK\n", len(filters))
			}
			return nil
		}

		fields := make([]string, 0, len(result.Errors))
		for field := range result.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", field, result.Errors[field])
		}
		return fmt.Errorf("%d problem(s) found", len(result.Errors))
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVar(&lintFilter, "filter", "", "Filter or filter list (JSON or @file)")
	_ = lintCmd.MarkFlagRequired("filter")
}
