package cmd

import (
	"fmt"
	"os"

	"github.com/caronae/caronae-dw/actions"
	"github.com/caronae/caronae-dw/config"
	"github.com/spf13/cobra"
)

var connRemoveCfg = actions.ConnectionConfig{}

var configConnRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm", "del", "delete"},
	Short:   "Remove a connection",
	Long:    fmt.Sprintf("Remove a connection from config file %q", config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		connRemoveCfg.ConfigFile = getConnectionGetterSetter()
		cmd.SilenceUsage = true
		return actions.RunConnectionRemove(&connRemoveCfg, os.Stdout)
	},
}

func initConnRemove() {
	configConnCmd.AddCommand(configConnRemoveCmd)
	switches.addFlag(configConnRemoveCmd, &connRemoveCfg.LogicalName, "connection-name", "", true, "")
}
