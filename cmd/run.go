package cmd

import (
	"fmt"

	"github.com/caronae/caronae-dw/actions"
	"github.com/caronae/caronae-dw/config"
	"github.com/spf13/cobra"
)

var runCfg = actions.EtlConfig{}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ETL once",
	Long: fmt.Sprintf(`Load the dimensions and then the facts that changed since the saved watermark.
The watermark only advances when every step succeeds. 

Settings are read from key %q in file %q and connections "source" and "warehouse" 
are read from file %q.`, config.SettingsKey, config.Main.FullPath, config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runEtl()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().SortFlags = false
	switches.addFlag(runCmd, &runCfg.Options.ResetWatermark, "reset-watermark", "", false, "")
	switches.addFlag(runCmd, &runCfg.Options.RegenerateTime, "regenerate-time", "", false, "")
	switches.addFlag(runCmd, &runCfg.Options.RegenerateFlags, "regenerate-flags", "", false, "")
	switches.addFlag(runCmd, &runCfg.LogLevel, "log-level", "info", false, "")
	switches.addFlag(runCmd, &runCfg.StatsDumpFrequencySeconds, "stats", "5", false, "")
}

func runEtl() error {
	s, err := getSettings()
	if err != nil {
		return err
	}
	runCfg.Settings = s
	runCfg.Connections = getConnectionLoader()
	runCfg.StackDumpOnPanic = stackDumpOnPanic || s.StackDump
	return actions.RunEtl(&runCfg)
}
