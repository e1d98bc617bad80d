package commands

import (
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagprops/internal/cli"
	"github.com/TimurManjosov/flagprops/internal/properties"
)

var operatorsCmd = &cobra.Command{
	Use:   "operators",
	Short: "List the supported filter operators",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		return cli.PrintOperators(cmd.OutOrStdout(), properties.Operators, s.format)
	},
}

func init() {
	rootCmd.AddCommand(operatorsCmd)
}
