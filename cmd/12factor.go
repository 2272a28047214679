package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/caronae/caronae-dw/actions"
	"github.com/caronae/caronae-dw/config"
	c "github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
	"github.com/xo/dburl"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set before other init() functions configure
// Cobra flags, so that they read their values from the environment instead.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		lambdaMode = strings.ToLower(mode) == "lambda"
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
		lambdaMode = false
	}
}

const (
	envVarTwelveFactorMode      = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand               = c.EnvVarPrefix + "_" + "COMMAND"
	envVarLogLevel              = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarStackDump             = c.EnvVarPrefix + "_" + "STACK_DUMP"
	defaultConnectionNameSource = "source"
	defaultConnectionNameTarget = "warehouse"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if os env var envVarTwelveFactorMode is "lambda"
	twelveFactorVars = map[string]string{
		envVarCommand:   "",
		envVarLogLevel:  "",
		envVarStackDump: "",
		helper.GetDsnEnvVarName(defaultConnectionNameSource): "",
		helper.GetDsnEnvVarName(defaultConnectionNameTarget): "",
	}
	twelveFactorVarsSensitive = map[string]string{ // used to flag some of the above variables as being sensitive.
		helper.GetDsnEnvVarName(defaultConnectionNameSource): "",
		helper.GetDsnEnvVarName(defaultConnectionNameTarget): "",
	}
)

type twelveFactorAction struct {
	runnerFunc func() error
}

var twelveFactorActions = map[string]twelveFactorAction{
	"run":   {runnerFunc: runEtl},
	"serve": {runnerFunc: runServe},
}

func getConnectionLoader() actions.ConnectionLoader {
	if twelveFactorMode {
		return &TwelveFactorConnections{}
	}
	return config.Connections
}

func getConnectionGetterSetter() actions.ConnectionGetterSetter {
	if twelveFactorMode {
		fmt.Printf("Error: connections cannot be configured when %v is set (supply them using %v and %v instead)\n",
			envVarTwelveFactorMode,
			helper.GetDsnEnvVarName(defaultConnectionNameSource),
			helper.GetDsnEnvVarName(defaultConnectionNameTarget))
		os.Exit(1)
	}
	return config.Connections
}

// getSettings returns the ETL settings from the main config file or, in twelveFactorMode,
// the defaults overridden by any environment variable named after a setting.
func getSettings() (config.Settings, error) {
	if !twelveFactorMode {
		return config.LoadSettings(config.Main)
	}
	s := config.NewSettings()
	err := applySettingsFromEnv(&s)
	return s, err
}

// applySettingsFromEnv sets each setting found in the environment.
// Dotted setting names map to variables like CDW_WATERMARK_S3BUCKET.
func applySettingsFromEnv(s *config.Settings) error {
	for _, key := range actions.SettingKeys() {
		var v string
		if err := helper.ReadValueFromEnv(settingKeyToEnvVar(key), &v); err != nil { // if the setting isn't in the environment...
			continue
		}
		if err := actions.SetSettingValue(s, key, v); err != nil {
			return errors.Wrapf(err, "error reading %v", settingKeyToEnvVar(key))
		}
	}
	return nil
}

func settingKeyToEnvVar(key string) string {
	return c.EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func execute12FactorMode(acts map[string]twelveFactorAction) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, "warn") // fetch logLevel from env as this is not a persistent flag.
	stackDumpOnPanic = stackDumpOnPanic || helper.ReadValueFromEnvWithDefault(envVarStackDump, "") != ""
	log := logger.NewLogger(c.AppName, logLevel, stackDumpOnPanic)
	log.Info(c.AppName, " is running in 12 Factor mode...")
	keys := make([]string, 0, len(twelveFactorVars))
	for k := range twelveFactorVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys { // for each env variable that we need...
		// Save it and log it.
		twelveFactorVars[k] = os.Getenv(k)
		if _, sensitive := twelveFactorVarsSensitive[k]; !sensitive {
			log.Debug(k, "=", twelveFactorVars[k])
		} else if twelveFactorVars[k] != "" {
			log.Debug(k, "=", "<obfuscated>")
		}
	}
	a, ok := acts[twelveFactorVars[envVarCommand]]
	if !ok {
		err = fmt.Errorf("invalid command %q supplied via %v", twelveFactorVars[envVarCommand], envVarCommand)
		log.Error(err.Error())
		return
	}
	err = a.runnerFunc()
	if err != nil {
		log.Error("Error: ", err)
	}
	return err
}

type TwelveFactorConnections struct{} // implements interfaces in module, actions.

// LoadConnection reads the DSN for connectionName from the environment,
// using variable CDW_<CONNECTION>_DSN, and returns it as shared.ConnectionDetails.
// This mimics loading connections from the config file.
func (t *TwelveFactorConnections) LoadConnection(connectionName string) (shared.ConnectionDetails, error) {
	kDsn := helper.GetDsnEnvVarName(connectionName)
	var vDsn string
	if err := helper.ReadValueFromEnv(kDsn, &vDsn); err != nil { // if we cannot find the DSN in the environment...
		return shared.ConnectionDetails{}, err
	}
	u, err := dburl.Parse(vDsn)
	if err != nil {
		return shared.ConnectionDetails{}, errors.Wrapf(err, "DSN in %v could not be parsed", kDsn)
	}
	if !actions.IsSupportedConnectionType(u.OriginalScheme) {
		return shared.ConnectionDetails{}, fmt.Errorf("unsupported connection type %q in %v", u.OriginalScheme, kDsn)
	}
	return shared.ConnectionDetails{
		Type:        c.ConnectionTypePostgres,
		LogicalName: connectionName,
		Data:        shared.DsnConnectionDetails{Dsn: vDsn}.GetMap(nil),
	}, nil
}
