package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/rdbms/shared"
	"github.com/pkg/errors"
)

// Settings holds everything a run of the ETL needs.
type Settings struct {
	Source          shared.ConnectionDetails `mapstructure:"source" yaml:"source" json:"source"`
	Warehouse       shared.ConnectionDetails `mapstructure:"warehouse" yaml:"warehouse" json:"warehouse"`
	Watermark       WatermarkSettings        `mapstructure:"watermark" yaml:"watermark" json:"watermark"`
	TimeDimension   TimeDimensionSettings    `mapstructure:"timeDimension" yaml:"timeDimension" json:"timeDimension"`
	Loader          LoaderSettings           `mapstructure:"loader" yaml:"loader" json:"loader"`
	FlagsMissPolicy string                   `mapstructure:"flagsMissPolicy" yaml:"flagsMissPolicy" json:"flagsMissPolicy"`
	Metrics         MetricsSettings          `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	LogLevel        string                   `mapstructure:"logLevel" yaml:"logLevel" json:"logLevel"`
	StackDump       bool                     `mapstructure:"stackDump" yaml:"stackDump" json:"stackDump"`
}

type WatermarkSettings struct {
	Type     string `mapstructure:"type" yaml:"type" json:"type"`
	Path     string `mapstructure:"path" yaml:"path" json:"path"`
	S3Bucket string `mapstructure:"s3Bucket" yaml:"s3Bucket" json:"s3Bucket"`
	S3Region string `mapstructure:"s3Region" yaml:"s3Region" json:"s3Region"`
	S3Prefix string `mapstructure:"s3Prefix" yaml:"s3Prefix" json:"s3Prefix"`
	S3Key    string `mapstructure:"s3Key" yaml:"s3Key" json:"s3Key"`
}

type TimeDimensionSettings struct {
	Start string `mapstructure:"start" yaml:"start" json:"start"`
	End   string `mapstructure:"end" yaml:"end" json:"end"`
}

type LoaderSettings struct {
	BatchSize int `mapstructure:"batchSize" yaml:"batchSize" json:"batchSize"`
}

type MetricsSettings struct {
	PushgatewayUrl string `mapstructure:"pushgatewayUrl" yaml:"pushgatewayUrl" json:"pushgatewayUrl"`
	Job            string `mapstructure:"job" yaml:"job" json:"job"`
}

// NewSettings returns Settings populated with defaults only.
func NewSettings() Settings {
	s := Settings{}
	s.ApplyDefaults()
	return s
}

// LoadSettings reads the settings key from File f and applies defaults to anything unset.
// A missing key is not an error.
func LoadSettings(f *File) (Settings, error) {
	s := Settings{}
	if err := f.Get(SettingsKey, &s); err != nil && !errors.As(err, &KeyNotFoundError{}) {
		return s, err
	}
	s.ApplyDefaults()
	return s, nil
}

// Save writes s under the settings key.
func (s Settings) Save(f *File) error {
	return f.Set(SettingsKey, s)
}

func (s *Settings) ApplyDefaults() {
	if s.Source.LogicalName == "" {
		s.Source.LogicalName = "source"
	}
	if s.Warehouse.LogicalName == "" {
		s.Warehouse.LogicalName = "warehouse"
	}
	if s.Watermark.Type == "" {
		s.Watermark.Type = constants.WatermarkTypeFile
	}
	if s.Watermark.Path == "" {
		s.Watermark.Path = constants.WatermarkDefaultFileName
	}
	if s.Watermark.S3Key == "" {
		s.Watermark.S3Key = constants.WatermarkDefaultFileName
	}
	if s.TimeDimension.Start == "" {
		s.TimeDimension.Start = constants.TimeDimensionStartDefault
	}
	if s.Loader.BatchSize <= 0 {
		s.Loader.BatchSize = constants.LoaderBatchSizeDefault
	}
	if s.FlagsMissPolicy == "" {
		s.FlagsMissPolicy = constants.FlagsMissPolicyFail
	}
	if s.Metrics.Job == "" {
		s.Metrics.Job = constants.AppName
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
}

// Validate checks mandatory connection fields and the values of enumerated settings.
func (s Settings) Validate() error {
	if err := helper.ValidateStructIsPopulated(s); err != nil {
		return err
	}
	var errs []string
	for name, c := range map[string]shared.ConnectionDetails{"source": s.Source, "warehouse": s.Warehouse} {
		if helper.IsBlank(c.Data[shared.DefaultDsnConnectionKeyNames.Dsn]) {
			errs = append(errs, fmt.Sprintf("%v connection has no dsn", name))
		}
	}
	switch s.Watermark.Type {
	case constants.WatermarkTypeFile, constants.WatermarkTypeWarehouse:
	case constants.WatermarkTypeS3:
		if s.Watermark.S3Bucket == "" || s.Watermark.S3Region == "" {
			errs = append(errs, "watermark type s3 needs s3Bucket and s3Region")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported watermark type %q", s.Watermark.Type))
	}
	switch s.FlagsMissPolicy {
	case constants.FlagsMissPolicyFail, constants.FlagsMissPolicyUnknown:
	default:
		errs = append(errs, fmt.Sprintf("unsupported flagsMissPolicy %q", s.FlagsMissPolicy))
	}
	if _, _, err := s.TimeDimension.Range(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("invalid settings: %v", strings.Join(errs, "; "))
	}
	return nil
}

// Range parses the inclusive day range of the time dimension as of now.
func (t TimeDimensionSettings) Range() (start time.Time, end time.Time, err error) {
	return t.RangeAt(time.Now())
}

// RangeAt parses the inclusive day range of the time dimension.
// A blank end is Dec 31 of the year after now so that the range keeps up with new rides.
func (t TimeDimensionSettings) RangeAt(now time.Time) (start time.Time, end time.Time, err error) {
	start, err = time.Parse(constants.DateLayout, t.Start)
	if err != nil {
		return start, end, errors.Wrap(err, "bad timeDimension start")
	}
	if t.End == "" {
		end = time.Date(now.Year()+constants.TimeDimensionYearsAhead, time.December, 31, 0, 0, 0, 0, time.UTC)
	} else if end, err = time.Parse(constants.DateLayout, t.End); err != nil {
		return start, end, errors.Wrap(err, "bad timeDimension end")
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("timeDimension end %v is before start %v", end.Format(constants.DateLayout), t.Start)
	}
	return start, end, nil
}
