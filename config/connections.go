package config

import (
	"fmt"

	"github.com/caronae/caronae-dw/rdbms/shared"
)

// GetConnectionDetails fetches generic connection details from the File c using the connectionName to do the lookup.
// If the connection is not found the an error is produced.
func (c *File) GetConnectionDetails(connectionName string) (*shared.ConnectionDetails, error) {
	genericConn := &shared.ConnectionDetails{}
	if err := c.Get(connectionName, genericConn); err != nil {
		return nil, err
	}
	if genericConn.Type == "" { // if the connection was not found...
		return nil, fmt.Errorf("connection %q is not configured: use 'config connection add' to create it", connectionName)
	}
	return genericConn, nil
}

// LoadConnection implements shared.ConnectionGetter.
func (c *File) LoadConnection(connectionName string) (shared.ConnectionDetails, error) {
	d, err := c.GetConnectionDetails(connectionName)
	if err != nil {
		return shared.ConnectionDetails{}, err
	}
	return *d, nil
}

// AddConnection saves a DSN connection under its logical name.
func (c *File) AddConnection(logicalName string, connectionType string, dsn string) error {
	d := shared.ConnectionDetails{
		Type:        connectionType,
		LogicalName: logicalName,
		Data:        shared.DsnConnectionDetails{Dsn: dsn}.GetMap(nil),
	}
	return c.Set(logicalName, d)
}
