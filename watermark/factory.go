package watermark

import (
	"fmt"

	"github.com/caronae/caronae-dw/aws/s3"
	"github.com/caronae/caronae-dw/config"
	"github.com/caronae/caronae-dw/constants"
	"github.com/caronae/caronae-dw/helper"
	"github.com/caronae/caronae-dw/logger"
	"github.com/caronae/caronae-dw/rdbms/shared"
)

// NewStore builds the Store chosen in the settings.
func NewStore(log logger.Logger, cfg config.WatermarkSettings, factory shared.ConnectionFactory) (Store, error) {
	switch cfg.Type {
	case constants.WatermarkTypeFile, "":
		return NewFileStore(log, cfg.Path), nil
	case constants.WatermarkTypeS3:
		b, err := s3.ParseDSN(cfg.S3Bucket+"/"+cfg.S3Prefix, cfg.S3Region)
		if err != nil {
			return nil, err
		}
		if err = helper.ValidateStructIsPopulated(b); err != nil {
			return nil, err
		}
		client, err := s3.NewBasicClient(b)
		if err != nil {
			return nil, err
		}
		log.Debug("using S3 watermark at ", b)
		return NewS3Store(log, client, cfg.S3Key), nil
	case constants.WatermarkTypeWarehouse:
		return NewWarehouseStore(log, factory), nil
	default:
		return nil, fmt.Errorf("unsupported watermark type %q", cfg.Type)
	}
}
