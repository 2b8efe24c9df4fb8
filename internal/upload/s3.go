// Package upload pushes extraction artifacts to the S3 staging bucket that
// the downstream DataBrew load jobs read from.
package upload

import (
	"context"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/lumaops/datalake-extract/internal/config"
)

// Uploader pushes local files to object storage.
type Uploader interface {
	Push(ctx context.Context, localPath, key string) error
}

// S3Uploader implements Uploader against S3-compatible storage.
type S3Uploader struct {
	client *minio.Client
	bucket string
	folder string
	log    zerolog.Logger
}

func NewS3Uploader(cfg config.AWSConfig, log zerolog.Logger) (*S3Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create S3 client")
	}

	return &S3Uploader{
		client: client,
		bucket: cfg.Bucket,
		folder: strings.Trim(cfg.OutputFolder, "/"),
		log:    log,
	}, nil
}

// Push uploads one local file under the configured output folder.
func (u *S3Uploader) Push(ctx context.Context, localPath, key string) error {
	objectKey := path.Join(u.folder, key)

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := u.client.FPutObject(ctx, u.bucket, objectKey, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrapf(err, "upload '%s' to s3://%s/%s", localPath, u.bucket, objectKey)
	}

	u.log.Debug().Msgf("Uploaded %s to s3://%s/%s", localPath, u.bucket, objectKey)
	return nil
}

// PushArtifacts uploads a business class's schema registry, metadata and
// extraction history, keyed under the class name. Data files are pushed by
// the load pipeline, not here.
func PushArtifacts(ctx context.Context, u Uploader, files config.FileConfig, businessClass string) error {
	artifacts := map[string]string{
		files.SchemasFile(businessClass):  path.Join(businessClass, "schemas.json"),
		files.MetadataFile(businessClass): path.Join(businessClass, "metadata.json"),
		files.HistoryFile(businessClass):  path.Join(businessClass, "extraction_history.csv"),
	}

	for localPath, key := range artifacts {
		if err := u.Push(ctx, localPath, key); err != nil {
			return err
		}
	}
	return nil
}
