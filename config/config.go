package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/caronae/caronae-dw/constants"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

var configHomeDir string
var Main *File
var Connections *File

func init() {
	Main = NewConfigFileWithDir(mustGetConfigHomeDir(), MainFileFullName)
	Connections = NewConfigFileWithDir(mustGetConfigHomeDir(), ConnectionsConfigFileFullName)
}

const (
	MainDir                         = "." + constants.AppName
	HomeDirEnvVar                   = constants.EnvVarPrefix + "_HOME"
	MainFileNamePrefix              = "config"
	MainFileNameExt                 = "yaml"
	MainFileFullName                = MainFileNamePrefix + "." + MainFileNameExt
	ConnectionsConfigFileNamePrefix = "connections"
	ConnectionsConfigFileNameExt    = "yaml"
	ConnectionsConfigFileFullName   = ConnectionsConfigFileNamePrefix + "." + ConnectionsConfigFileNameExt
	SettingsKey                     = "etl"
)

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

type KeyNotFoundError struct {
	configFile string
	key        string
	err        error
}

func (k KeyNotFoundError) Error() string {
	if k.err != nil {
		return fmt.Sprintf("key %q not found in config file %q: %v", k.key, k.configFile, k.err)
	}
	return fmt.Sprintf("key %q not found in config file %q", k.key, k.configFile)
}

// File is a yaml file of top level keys, each holding a value that can be decoded into a struct.
type File struct {
	Dirname      string
	FileName     string
	FilePrefix   string
	FileExt      string
	FullPath     string
	data         map[string]interface{}
	dataIsLoaded bool
	mu           sync.Mutex
}

func NewConfigFileWithDir(dirName string, filename string) *File {
	c := &File{Dirname: dirName, FileName: filename}
	c.FullPath = path.Join(dirName, filename)
	c.FileExt = strings.TrimLeft(path.Ext(filename), ".")
	c.FilePrefix = strings.TrimSuffix(c.FileName, "."+c.FileExt)
	c.data = make(map[string]interface{})
	return c
}

// Get will fetch the key from the config File into variable, out, using mapstructure.
// Return a KeyNotFoundError if we can't find the key.
func (c *File) Get(key string, out interface{}) error {
	val := reflect.ValueOf(out)
	if val.Kind() != reflect.Ptr {
		return errors.New("out must be a pointer")
	}
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	d, ok := c.data[key]
	c.mu.Unlock()
	if !ok { // if the key was not found...
		return KeyNotFoundError{c.FullPath, key, nil}
	}
	if err := mapstructure.Decode(d, out); err != nil {
		return fmt.Errorf("error decoding key %q in config file %q: %w", key, c.FullPath, err)
	}
	return nil
}

// Set saves val under key and rewrites the file.
// The value is held in its yaml form so Get decodes it the same way as data read from disk.
func (c *File) Set(key string, val interface{}) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	b, err := yaml.Marshal(val)
	if err != nil {
		return fmt.Errorf("error marshalling key %v for config file %v: %w", key, c.FullPath, err)
	}
	var generic interface{}
	if err = yaml.Unmarshal(b, &generic); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = generic
	return c.save()
}

func (c *File) Delete(key string) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, keyExists := c.data[key]; !keyExists {
		return KeyNotFoundError{c.FullPath, key, nil}
	}
	delete(c.data, key)
	return c.save()
}

// GetAllKeys returns the sorted top level keys.
func (c *File) GetAllKeys() ([]string, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	retval := make([]string, 0, len(c.data))
	for k := range c.data {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval, nil
}

// ensureLoaded reads the file once; a missing file is treated as empty.
func (c *File) ensureLoaded() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dataIsLoaded {
		return nil
	}
	err := c.loadData()
	if err != nil && !errors.As(err, &FileNotFoundError{}) { // if the error is not a missing file...
		return err
	}
	c.dataIsLoaded = true
	return nil
}

func (c *File) loadData() error {
	b, err := ioutil.ReadFile(c.FullPath)
	if os.IsNotExist(err) {
		return FileNotFoundError{c.FullPath}
	} else if err != nil {
		return fmt.Errorf("error reading config file %v: %w", c.FullPath, err)
	}
	if err = yaml.Unmarshal(b, &c.data); err != nil {
		return fmt.Errorf("error parsing config file %v: %w", c.FullPath, err)
	}
	if c.data == nil { // if the file was empty...
		c.data = make(map[string]interface{})
	}
	return nil
}

// save writes all keys to a temp file and renames it over the config file.
func (c *File) save() error {
	b, err := yaml.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("error marshalling data for config file %v: %w", c.FullPath, err)
	}
	if err = makeDir(c.Dirname); err != nil {
		return err
	}
	tmp := c.FullPath + ".tmp"
	if err = ioutil.WriteFile(tmp, b, 0600); err != nil {
		return fmt.Errorf("error writing config file %v: %w", tmp, err)
	}
	if err = os.Rename(tmp, c.FullPath); err != nil {
		return fmt.Errorf("error replacing config file %v: %w", c.FullPath, err)
	}
	return nil
}
