package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/airbusgeo/coverstore/interface/storage/gcs"
	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"

	osioGcs "github.com/airbusgeo/osio/gcs"
	osioS3 "github.com/airbusgeo/osio/s3"
	aws3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

// GDALConfig configures GDAL to read the source rasters, locally or on gs:// and s3:// storages
type GDALConfig struct {
	BlockSize       string
	NumCachedBlocks int
	StorageDebug    bool
	WithGCS         bool
	WithS3          bool
	AwsRegion       string
	AwsEndpoint     string
	AwsCredentials  string
}

// GDALConfigFlags defines the flags of the GDAL configuration (flag.Parse must be called afterwards)
func GDALConfigFlags() *GDALConfig {
	gdalConfig := GDALConfig{}
	flag.StringVar(&gdalConfig.BlockSize, "gdalBlockSize", Getenv("GDAL_BLOCK_SIZE", "1Mb"), "size of the blocks read on remote storages")
	flag.IntVar(&gdalConfig.NumCachedBlocks, "gdalNumCachedBlocks", GetenvInt("GDAL_NUM_CACHED_BLOCKS", 500), "number of blocks cached when reading remote storages")
	flag.BoolVar(&gdalConfig.WithGCS, "with-gcs", GetenvBool("WITH_GCS", false), "configure GDAL to read gs:// rasters (may need authentication)")
	flag.BoolVar(&gdalConfig.WithS3, "with-s3", GetenvBool("WITH_S3", false), "configure GDAL to read s3:// rasters (may need authentication)")
	flag.StringVar(&gdalConfig.AwsRegion, "aws-region", Getenv("AWS_REGION", ""), "aws region to read s3:// rasters (--with-s3)")
	flag.StringVar(&gdalConfig.AwsEndpoint, "aws-endpoint", Getenv("AWS_ENDPOINT", ""), "aws endpoint to read s3:// rasters (--with-s3)")
	flag.StringVar(&gdalConfig.AwsCredentials, "aws-shared-credentials-file", Getenv("AWS_SHARED_CREDENTIALS_FILE", ""), "aws shared credentials file to read s3:// rasters (--with-s3)")
	flag.BoolVar(&gdalConfig.StorageDebug, "gdalStorageDebug", GetenvBool("GDAL_STORAGE_DEBUG", false), "read gs:// rasters with the storage client of coverstore instead of osio")
	return &gdalConfig
}

type keyStreamer interface {
	StreamAt(key string, off int64, n int64) (io.ReadCloser, int64, error)
}

// InitGDAL registers the GDAL drivers and the VSI handlers of the remote storages
func InitGDAL(ctx context.Context, gdalConfig *GDALConfig) error {
	os.Setenv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
	godal.RegisterAll()

	if gdalConfig.WithGCS {
		var adapter keyStreamer
		var err error
		if gdalConfig.StorageDebug {
			adapter, err = gcs.NewGsStrategy(ctx)
		} else {
			adapter, err = osioGcs.Handle(ctx)
		}
		if err != nil {
			return fmt.Errorf("InitGDAL.gcs: %w", err)
		}
		if err := registerHandler("gs://", adapter, gdalConfig); err != nil {
			return err
		}
	}

	if gdalConfig.WithS3 {
		var opts []func(*awsConfig.LoadOptions) error
		if gdalConfig.AwsCredentials != "" {
			opts = append(opts, awsConfig.WithSharedCredentialsFiles([]string{gdalConfig.AwsCredentials}))
		}
		if gdalConfig.AwsRegion != "" {
			opts = append(opts, awsConfig.WithRegion(gdalConfig.AwsRegion))
		}
		config, err := awsConfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return fmt.Errorf("InitGDAL.s3: %w", err)
		}
		s3Client := aws3.NewFromConfig(config, func(o *aws3.Options) {
			if gdalConfig.AwsEndpoint != "" {
				o.BaseEndpoint = aws.String(gdalConfig.AwsEndpoint)
				o.UsePathStyle = true
			}
		})
		handle, err := osioS3.Handle(ctx, osioS3.S3Client(s3Client))
		if err != nil {
			return fmt.Errorf("InitGDAL.s3: %w", err)
		}
		if err := registerHandler("s3://", handle, gdalConfig); err != nil {
			return err
		}
	}
	return nil
}

func registerHandler(prefix string, ks keyStreamer, gdalConfig *GDALConfig) error {
	adapter, err := osio.NewAdapter(ks,
		osio.BlockSize(gdalConfig.BlockSize),
		osio.NumCachedBlocks(gdalConfig.NumCachedBlocks))
	if err != nil {
		return fmt.Errorf("InitGDAL.NewAdapter: %w", err)
	}
	if err := godal.RegisterVSIHandler(prefix, adapter); err != nil {
		return fmt.Errorf("InitGDAL.RegisterVSIHandler(%s): %w", prefix, err)
	}
	return nil
}
