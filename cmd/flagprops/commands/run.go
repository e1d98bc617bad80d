package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagprops/internal/cli"
)

var runConcurrency int

var runCmd = &cobra.Command{
	Use:   "run <cases.yaml>",
	Short: "Run a file of filter test cases",
	Long: `Run every case of a YAML case file and report which ones met their
expectation. Exits non-zero if any case fails.

A case file looks like:

  cases:
    - name: staff email
      filter: {key: email, value: "@example.com", operator: icontains}
      properties: {email: "ada@Example.com"}
      expect: true
    - name: unknown country is inconclusive
      filters:
        - {key: plan, value: pro}
        - {key: country, value: DE}
      properties: {plan: pro}
      partial: true
      expect: missing_property

Examples:
  flagprops run cases.yaml
  flagprops run cases.yaml --concurrency 32 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		file, err := cli.LoadCases(args[0])
		if err != nil {
			return err
		}

		concurrency := s.cfg.Concurrency
		if runConcurrency > 0 {
			concurrency = runConcurrency
		}
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "Running %d case(s), %d at a time\n", len(file.Cases), concurrency)
		}

		results, err := cli.RunCases(cmd.Context(), s.evaluator, file.Cases, concurrency)
		if err != nil {
			return fmt.Errorf("run aborted: %w", err)
		}

		if !quiet {
			if err := cli.PrintCaseResults(cmd.OutOrStdout(), results, s.format); err != nil {
				return err
			}
		}

		if failed := cli.CountFailed(results); failed > 0 {
			return fmt.Errorf("%d of %d case(s) failed", failed, len(results))
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "All %d case(s) passed\n", len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Cases evaluated in parallel (defaults to the config file)")
}
