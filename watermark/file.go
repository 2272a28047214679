package watermark

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/caronae/caronae-dw/logger"
	"github.com/pkg/errors"
)

// FileStore keeps the watermark in a one line text file.
type FileStore struct {
	Log  logger.Logger
	Path string
}

func NewFileStore(log logger.Logger, path string) *FileStore {
	return &FileStore{Log: log, Path: path}
}

func (s *FileStore) Read(ctx context.Context) (time.Time, error) {
	b, err := ioutil.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return Parse(s.Log, ""), nil
	} else if err != nil {
		s.Log.Warn("Unable to read watermark file ", s.Path, ", using the default: ", err)
		return Parse(s.Log, ""), nil
	}
	return Parse(s.Log, string(b)), nil
}

// Write replaces the file atomically: a temp file in the same directory is synced and renamed.
func (s *FileStore) Write(ctx context.Context, t time.Time) (err error) {
	dir := filepath.Dir(s.Path)
	f, err := ioutil.TempFile(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "error creating temp file for watermark in %v", dir)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()
	if _, err = f.WriteString(Format(t) + "\n"); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "error writing watermark")
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "error syncing watermark")
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "error closing watermark")
	}
	if err = os.Rename(f.Name(), s.Path); err != nil {
		return errors.Wrapf(err, "error replacing watermark file %v", s.Path)
	}
	s.Log.Info("Saved watermark ", Format(t), " to ", s.Path)
	return nil
}

func (s *FileStore) Reset(ctx context.Context) error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "error removing watermark file %v", s.Path)
	}
	s.Log.Info("Watermark file ", s.Path, " reset")
	return nil
}
