package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagprops/internal/cli"
)

var (
	matchFilter  string
	matchProps   string
	matchPartial bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Evaluate a filter (or a filter list) against properties",
	Long: `Evaluate one property filter, or a list of filters ANDed together,
against a property set. Values are inline JSON or @file (JSON, or YAML for
.yaml/.yml files).

With --partial the property set is treated as incomplete: a filter on an
absent key reports missing_property instead of deciding.

Examples:
  flagprops match --filter '{"key":"age","value":18,"operator":"gte"}' --props '{"age":21}'
  flagprops match --filter @filters.yaml --props @person.json --format json
  flagprops match --filter '{"key":"email","value":"x"}' --props '{}' --partial`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		filterData, filterSource, err := cli.ReadInput(matchFilter)
		if err != nil {
			return err
		}
		filters, err := cli.DecodeFilters(filterData, filterSource)
		if err != nil {
			return err
		}

		propsData, propsSource, err := cli.ReadInput(matchProps)
		if err != nil {
			return err
		}
		props, err := cli.DecodePropertiesInput(propsData, propsSource)
		if err != nil {
			return err
		}

		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "Evaluating %d filter(s) against %d properties\n", len(filters), len(props))
		}

		res, err := s.evaluator.Evaluate(cmd.Context(), filters, props, matchPartial)
		if err != nil {
			return fmt.Errorf("failed to evaluate: %w", err)
		}

		if quiet {
			return nil
		}
		return cli.PrintResult(cmd.OutOrStdout(), res, s.format)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVar(&matchFilter, "filter", "", "Filter or filter list (JSON or @file)")
	matchCmd.Flags().StringVar(&matchProps, "props", "{}", "Properties object (JSON or @file)")
	matchCmd.Flags().BoolVar(&matchPartial, "partial", false, "Treat the property set as incomplete")
	_ = matchCmd.MarkFlagRequired("filter")
}
