package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrapeline/scrapeline/internal/config"
	"github.com/scrapeline/scrapeline/internal/observability"
)

var validateCmd = &cobra.Command{
	Use:   "validate <name>",
	Short: "Validate a scraping configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCfg, err := loadAppConfig()
		if err != nil {
			return err
		}

		loader := config.NewLoader(appCfg.ConfigDir, observability.CLILogger)
		if err := loader.Validate(args[0]); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "configuration %q is valid\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
