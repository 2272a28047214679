package actions

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/caronae/caronae-dw/config"
	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
)

// IsSupportedConnectionType returns true if DSN scheme t can be used for the source or warehouse.
func IsSupportedConnectionType(t string) bool {
	_, ok := supportedConnectionTypes[t]
	return ok
}

// supportedConnectionTypes are the DSN schemes accepted for the source and warehouse.
var supportedConnectionTypes = map[string]struct{}{
	constants.ConnectionTypePostgres: {},
	"postgresql":                     {},
	"pg":                             {},
}

type ConnectionConfig struct {
	ConfigFile  ConnectionGetterSetter
	LogicalName string `errorTxt:"connection name" mandatory:"yes"`
	ConnDetails ConnectionValidator
	Force       bool
}

func RunConnectionAdd(cfg *ConnectionConfig, w io.Writer) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil { // if the basics were not supplied...
		return err
	}
	if strings.Contains(cfg.LogicalName, ".") {
		return fmt.Errorf("connection name cannot contain period characters '.'")
	}
	if err := cfg.ConnDetails.Parse(); err != nil {
		return errors.Wrap(err, "unable to create connection")
	}
	scheme, err := cfg.ConnDetails.GetScheme()
	if err != nil {
		return err
	}
	if !IsSupportedConnectionType(scheme) {
		return fmt.Errorf("%v is an unsupported connection type, please use a postgres DSN", scheme)
	}
	connection := shared.ConnectionDetails{
		LogicalName: cfg.LogicalName,
		Type:        constants.ConnectionTypePostgres,
		Data:        cfg.ConnDetails.GetMap(nil),
	}
	// Check for an existing saved connection.
	tmpConn := &shared.ConnectionDetails{}
	err = cfg.ConfigFile.Get(cfg.LogicalName, tmpConn)
	if err != nil { // if there is an error finding the connection...
		if !errors.As(err, &config.FileNotFoundError{}) && !errors.As(err, &config.KeyNotFoundError{}) { // if the error is real...
			return err
		}
	} else if tmpConn.LogicalName != "" && !cfg.Force { // else if the connection exists, but we are not allowed to overwrite it...
		return fmt.Errorf("connection exists, use force to update the connection or remove it first")
	}
	// Set config (creates the file if missing).
	if err = cfg.ConfigFile.Set(cfg.LogicalName, &connection); err != nil {
		return fmt.Errorf("error writing connections config file after adding: %v", err)
	}
	_, _ = fmt.Fprintf(w, "Connection %q added\n", cfg.LogicalName)
	return nil
}

func RunConnectionRemove(cfg *ConnectionConfig, w io.Writer) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if err := cfg.ConfigFile.Delete(cfg.LogicalName); err != nil {
		return fmt.Errorf("unable to delete connection %q from config: %v", cfg.LogicalName, err)
	}
	_, _ = fmt.Fprintf(w, "Connection %q removed\n", cfg.LogicalName)
	return nil
}

// RunConnectionList prints every saved connection with passwords redacted.
func RunConnectionList(c ConnectionGetterSetter, w io.Writer) error {
	keys, err := c.GetAllKeys()
	if err != nil {
		if errors.As(err, &config.FileNotFoundError{}) {
			_, _ = fmt.Fprintln(w, "No connections found")
			return nil
		}
		return err
	}
	sort.Strings(keys)
	for _, k := range keys {
		d := shared.ConnectionDetails{}
		if err := c.Get(k, &d); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%v:\n%v\n", k, d)
	}
	return nil
}
