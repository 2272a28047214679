package watermark

import (
	"context"
	"time"

	"github.com/caronae/caronae-dw/aws/s3"
	"github.com/caronae/caronae-dw/logger"
	"github.com/pkg/errors"
)

// S3Store keeps the watermark in an S3 object.
type S3Store struct {
	Log    logger.Logger
	Client s3.BasicClient
	Key    string
}

func NewS3Store(log logger.Logger, client s3.BasicClient, key string) *S3Store {
	return &S3Store{Log: log, Client: client, Key: key}
}

func (s *S3Store) Read(ctx context.Context) (time.Time, error) {
	b, err := s.Client.Get(ctx, s.Key)
	if errors.Is(err, s3.ErrKeyNotFound) {
		return Parse(s.Log, ""), nil
	} else if err != nil {
		return time.Time{}, errors.Wrapf(err, "error reading watermark object %v", s.Key)
	}
	return Parse(s.Log, string(b)), nil
}

func (s *S3Store) Write(ctx context.Context, t time.Time) error {
	if err := s.Client.Put(ctx, s.Key, []byte(Format(t)+"\n")); err != nil {
		return errors.Wrapf(err, "error writing watermark object %v", s.Key)
	}
	s.Log.Info("Saved watermark ", Format(t), " to S3 key ", s.Key)
	return nil
}

func (s *S3Store) Reset(ctx context.Context) error {
	if err := s.Client.Delete(ctx, s.Key); err != nil && !errors.Is(err, s3.ErrKeyNotFound) {
		return errors.Wrapf(err, "error deleting watermark object %v", s.Key)
	}
	s.Log.Info("Watermark object ", s.Key, " reset")
	return nil
}
