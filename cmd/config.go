package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/caronae/caronae-dw/actions"
	"github.com/caronae/caronae-dw/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure connections and ETL settings",
	Long: fmt.Sprintf(`Configure connections & ETL settings where:

- Connections are stored in file %q
- Settings are stored under key %q in file %q
`, config.Connections.FullPath, config.SettingsKey, config.Main.FullPath),
}

var configShowOutput string

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the ETL settings",
	Long:  `Print the ETL settings, including defaults for anything that is not set`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return actions.RunSettingsShow(config.Main, os.Stdout, configShowOutput)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Save an ETL setting",
	Long: fmt.Sprintf(`Save an ETL setting using its dotted name. Available settings are:

  %v`, strings.Join(actions.SettingKeys(), "\n  ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return actions.RunSettingsSet(config.Main, os.Stdout, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	switches.addFlag(configShowCmd, &configShowOutput, "output", "yaml", false, "")
}
