package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrapeline/scrapeline/internal/config"
	"github.com/scrapeline/scrapeline/internal/observability"
)

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show details for a scraping configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCfg, err := loadAppConfig()
		if err != nil {
			return err
		}

		loader := config.NewLoader(appCfg.ConfigDir, observability.CLILogger)
		info := loader.Info(args[0])

		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		if info.Error != "" {
			return fmt.Errorf("configuration %q is invalid: %s", args[0], info.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
