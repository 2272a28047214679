package config

import (
	"fmt"
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
)

// mustGetConfigHomeDir returns the full path to the home directory that stores all config files.
// Uses global variable.
func mustGetConfigHomeDir() string {
	if configHomeDir == "" {
		if d := os.Getenv(HomeDirEnvVar); d != "" { // if the user supplied an explicit config dir...
			configHomeDir = d
			return configHomeDir
		}
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		configHomeDir = path.Join(home, MainDir)
	}
	return configHomeDir
}

// makeDir will make the given directory if it does not already exist.
// If it exist then return nil.
// An error is returned if there is a problem creating the dir.
func makeDir(dir string) error {
	_, err := os.Stat(dir)
	if os.IsNotExist(err) { // if it doesn't exist...
		if err = os.MkdirAll(dir, 0700); err != nil { // if the dir was NOT created...
			return fmt.Errorf("error creating directory %v: %w", dir, err)
		}
	} else if err != nil { // if there was an error getting status...
		return err
	}
	return nil
}
