package actions

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/caronae/caronae-dw/config"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// settingsKeysManagedElsewhere cannot be changed with SetSettingValue.
var settingsKeysManagedElsewhere = map[string]string{
	"source":    "use 'config connection add' to save the source connection",
	"warehouse": "use 'config connection add' to save the warehouse connection",
}

// RunSettingsShow prints the saved settings, with defaults applied, as yaml or json.
func RunSettingsShow(f *config.File, w io.Writer, yamlOrJson string) error {
	s, err := config.LoadSettings(f)
	if err != nil {
		return err
	}
	s.Source.Data = nil // connections are listed by 'config connection list'.
	s.Warehouse.Data = nil
	return writeOutput(w, s, yamlOrJson)
}

// RunSettingsSet saves value under the dotted settings key, e.g. watermark.type.
func RunSettingsSet(f *config.File, w io.Writer, key string, value string) error {
	s, err := config.LoadSettings(f)
	if err != nil {
		return err
	}
	if err = SetSettingValue(&s, key, value); err != nil {
		return err
	}
	if err = s.Save(f); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Setting %q saved\n", key)
	return nil
}

// SettingKeys returns the dotted keys of every setting that SetSettingValue accepts, sorted.
func SettingKeys() []string {
	m, err := settingsToMap(config.NewSettings())
	if err != nil {
		panic(err) // Settings always marshal.
	}
	var keys []string
	var walk func(prefix string, node map[string]interface{})
	walk = func(prefix string, node map[string]interface{}) {
		for k, v := range node {
			if _, skip := settingsKeysManagedElsewhere[k]; skip && prefix == "" {
				continue
			}
			if child, ok := v.(map[string]interface{}); ok {
				walk(prefix+k+".", child)
			} else {
				keys = append(keys, prefix+k)
			}
		}
	}
	walk("", m)
	sort.Strings(keys)
	return keys
}

// SetSettingValue changes the setting at the dotted key to value, converting value to the setting's type.
// Keys use the json names of the settings.
func SetSettingValue(s *config.Settings, key string, value string) error {
	path := strings.Split(key, ".")
	if msg, ok := settingsKeysManagedElsewhere[path[0]]; ok {
		return fmt.Errorf("setting %q cannot be changed: %v", key, msg)
	}
	m, err := settingsToMap(*s)
	if err != nil {
		return err
	}
	node := m
	for idx, k := range path {
		v, ok := node[k]
		if !ok {
			return fmt.Errorf("unknown setting %q", key)
		}
		if idx == len(path)-1 {
			if _, isMap := v.(map[string]interface{}); isMap {
				return fmt.Errorf("setting %q has children, please supply one of them", key)
			}
			node[k] = value
			break
		}
		child, isMap := v.(map[string]interface{})
		if !isMap {
			return fmt.Errorf("unknown setting %q", key)
		}
		node = child
	}
	updated := config.Settings{}
	if err = mapstructure.WeakDecode(m, &updated); err != nil {
		return errors.Wrapf(err, "bad value %q for setting %q", value, key)
	}
	*s = updated
	return nil
}

// settingsToMap walks the settings as a generic map so keys are validated against their json names.
func settingsToMap(s config.Settings) (map[string]interface{}, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	m := make(map[string]interface{})
	if err = json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
