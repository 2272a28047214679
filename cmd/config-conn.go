package cmd

import (
	"fmt"

	"github.com/caronae/caronae-dw/config"
	"github.com/spf13/cobra"
)

var configConnCmd = &cobra.Command{
	Use:     "connections",
	Aliases: []string{"connection", "conn"},
	Short:   "Configure connection details",
	Long: fmt.Sprintf(`Configure the "source" and "warehouse" connections where:

- Connections are stored in file %q`, config.Connections.FullPath),
}

func init() {
	configCmd.AddCommand(configConnCmd)
	initConnAdd()
	initConnList()
	initConnRemove()
}
