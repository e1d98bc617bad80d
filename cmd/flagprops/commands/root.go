package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagprops/internal/cli"
	"github.com/TimurManjosov/flagprops/internal/client"
	"github.com/TimurManjosov/flagprops/internal/targeting"
)

var (
	// Global flags
	baseURL string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flagprops",
	Short: "Evaluate property filters against property sets",
	Long: `Flagprops evaluates feature flag property filters against a set of
person or group properties, either in-process or against a running match server.

Examples:
  flagprops match --filter '{"key":"email","value":"@example.com","operator":"icontains"}' --props '{"email":"a@example.com"}'
  flagprops match --filter @filter.yaml --props @props.json --partial
  flagprops run cases.yaml
  flagprops run cases.yaml --base-url http://localhost:8080
  flagprops lint --filter @filters.yaml
  flagprops operators`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Evaluate against this match server instead of in-process")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "Output format (table, json, yaml); defaults to the config file")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// settings resolves flags against the CLI config file.
type settings struct {
	cfg       *cli.Config
	format    cli.OutputFormat
	evaluator cli.Evaluator
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	s := &settings{cfg: cfg, format: cli.OutputFormat(cfg.Format)}
	if format != "" {
		s.format = cli.OutputFormat(format)
	}

	if remote := cli.ResolveBaseURL(baseURL, cfg); remote != "" {
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "Evaluating against %s\n", remote)
		}
		s.evaluator = cli.RemoteEvaluator{Client: client.NewClient(remote)}
	} else {
		cache, err := targeting.NewPatternCache(256)
		if err != nil {
			return nil, err
		}
		s.evaluator = cli.LocalEvaluator{Matcher: targeting.NewMatcher(cache, nil)}
	}
	return s, nil
}
