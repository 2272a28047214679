// Package watermark persists the point in time up to which source changes have been loaded.
package watermark

import (
	"context"
	"strings"
	"time"

	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/logger"
)

// Default is returned when no watermark has been saved yet, which causes a full load.
var Default = time.Date(2000, 1, 1, 0, 0, 0, 0, time.Local)

// Store reads and writes the watermark.
type Store interface {
	// Read returns the saved watermark or Default if there is none.
	// An error is only returned for failures other than a missing watermark.
	Read(ctx context.Context) (time.Time, error)
	// Write saves t as the new watermark.
	Write(ctx context.Context, t time.Time) error
	// Reset forgets the saved watermark so the next Read returns Default.
	Reset(ctx context.Context) error
}

// Format renders t the way every Store persists it.
func Format(t time.Time) string {
	return t.In(time.Local).Format(constants.WatermarkLayout)
}

// Parse converts saved content to a time.
// Empty or malformed content yields Default and a warning.
func Parse(log logger.Logger, content string) time.Time {
	s := strings.TrimSpace(content)
	if s == "" {
		log.Info("No watermark found, using default ", Format(Default))
		return Default
	}
	t, err := time.ParseInLocation(constants.WatermarkLayout, s, time.Local)
	if err != nil {
		log.Warn("Ignoring malformed watermark ", s, ": ", err, "; using default ", Format(Default))
		return Default
	}
	return t
}
