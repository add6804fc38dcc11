package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrapeline/scrapeline/internal/config"
	"github.com/scrapeline/scrapeline/internal/core"
	"github.com/scrapeline/scrapeline/internal/observability"
	"github.com/scrapeline/scrapeline/internal/output"
)

var configsFormat string

var configsCmd = &cobra.Command{
	Use:   "configs",
	Short: "List available scraping configurations",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCfg, err := loadAppConfig()
		if err != nil {
			return err
		}

		loader := config.NewLoader(appCfg.ConfigDir, observability.CLILogger)
		names, err := loader.List()
		if err != nil {
			return err
		}

		infos := make([]*core.ConfigInfo, 0, len(names))
		for _, name := range names {
			info := loader.Info(name)
			infos = append(infos, &info)
		}

		switch configsFormat {
		case "json":
			data, err := json.MarshalIndent(infos, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		case "table", "":
			formatter := &output.TableFormatter{}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatConfigs(infos))
		default:
			return fmt.Errorf("unsupported format: %s", configsFormat)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configsCmd)
	configsCmd.Flags().StringVarP(&configsFormat, "format", "f", "table", "output format (table, json)")
}
