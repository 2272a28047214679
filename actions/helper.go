package actions

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/caronae/caronae-dw/config"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// LoadConnectionDataIfMissing fills the source and warehouse connections of s using c,
// where they do not already carry a DSN. Connections are looked up by their logical names.
func LoadConnectionDataIfMissing(c ConnectionLoader, s *config.Settings) error {
	for _, conn := range []*shared.ConnectionDetails{&s.Source, &s.Warehouse} {
		if !helper.IsBlank(conn.Data[shared.DefaultDsnConnectionKeyNames.Dsn]) { // if the DSN was supplied already...
			continue
		}
		if c == nil {
			return fmt.Errorf("no details found for connection %q", conn.LogicalName)
		}
		d, err := c.LoadConnection(conn.LogicalName)
		if err != nil {
			return errors.Wrapf(err, "error loading connection %q", conn.LogicalName)
		}
		*conn = d
	}
	return nil
}

// writeOutput renders i to w as yaml or json.
func writeOutput(w io.Writer, i interface{}, yamlOrJson string) error {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return err
	}
	switch yamlOrJson {
	case "json":
		_, err = fmt.Fprintln(w, string(j))
	case "yaml":
		var y []byte
		y, err = yaml.JSONToYAML(j)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, string(y))
	default:
		return fmt.Errorf("unsupported output format %q", yamlOrJson)
	}
	return err
}
