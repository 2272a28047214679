package cmd

import (
	"net"

	"github.com/caronae/caronae-dw/actions"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a web service to launch and monitor ETL runs",
	Long: `Start a web service to launch and monitor ETL runs where:

  POST /runs                  launches a run; supply JSON {"resetWatermark": bool, "regenerateTime": bool, "regenerateFlags": bool}
  GET  /runs                  lists runs
  GET  /runs/{runId}/status   shows the status of a run
  GET  /runs/{runId}/stats    shows the statistics of each step of a run
  POST /runs/{runId}/stop     cancels a run
  GET  /metrics               exposes Prometheus metrics
  GET  /health                is a health check
  GET  /stop                  stops the server`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runServe()
	},
}

var serveConfig = actions.WebServerConfig{
	LogLevel:                  "info",
	Scheme:                    "http",
	Addr:                      net.IP{0, 0, 0, 0},
	Port:                      8080,
	StatsDumpFrequencySeconds: 5,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().SortFlags = false
	serveCmd.Flags().IPVarP(&serveConfig.Addr, "address", "a", net.IP{0, 0, 0, 0}, "Address to listen on")
	switches.addFlag(serveCmd, &serveConfig.Port, "port", "8080", false, "")
	switches.addFlag(serveCmd, &serveConfig.LogLevel, "log-level", "info", false, "")
	switches.addFlag(serveCmd, &serveConfig.StatsDumpFrequencySeconds, "stats", "5", false, "")
}

func runServe() error {
	s, err := getSettings()
	if err != nil {
		return err
	}
	serveConfig.Settings = s
	serveConfig.Connections = getConnectionLoader()
	serveConfig.StackDumpOnPanic = stackDumpOnPanic || s.StackDump
	return actions.RunWebServer(&serveConfig)
}
