package cmd

import (
	"fmt"
	"os"

	"github.com/caronae/caronae-dw/actions"
	"github.com/caronae/caronae-dw/config"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/spf13/cobra"
)

var connAddCfg = &actions.ConnectionConfig{}
var connAddDsn = &shared.DsnConnectionDetails{}

var configConnAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a PostgreSQL connection",
	Long: fmt.Sprintf(`Add a PostgreSQL connection to the config store %q 
by providing a DSN of the form: 

postgres://<user>:<password>@<host>:<port>/<database>?sslmode=<mode>`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		connAddCfg.ConfigFile = getConnectionGetterSetter()
		connAddCfg.ConnDetails = connAddDsn
		cmd.SilenceUsage = true
		return actions.RunConnectionAdd(connAddCfg, os.Stdout)
	},
}

func initConnAdd() {
	configConnCmd.AddCommand(configConnAddCmd)
	configConnAddCmd.Flags().SortFlags = false
	switches.addFlag(configConnAddCmd, &connAddCfg.LogicalName, "connection-name", "", true, "")
	switches.addFlag(configConnAddCmd, &connAddDsn.Dsn, "dsn", "", true, "")
	switches.addFlag(configConnAddCmd, &connAddCfg.Force, "force-connection", "", false, "")
}
