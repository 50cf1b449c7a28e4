package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	cfg "github.com/GTDGit/groupbuy_api/internal/config"
)

// Snapshotter returns the whole datastore document.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]byte, error)
}

// ObjectUploader is the subset of the S3 client used for backups.
type ObjectUploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// BackupService uploads datastore snapshots to S3.
type BackupService struct {
	store    Snapshotter
	uploader ObjectUploader
	bucket   string
	prefix   string
	now      func() time.Time
}

// NewBackupService loads AWS credentials from the default chain and builds an
// S3 client for s3Cfg.Region.
func NewBackupService(ctx context.Context, store Snapshotter, s3Cfg cfg.S3Config) (*BackupService, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(s3Cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newBackupService(store, s3.NewFromConfig(awsCfg), s3Cfg.Bucket, s3Cfg.Prefix), nil
}

func newBackupService(store Snapshotter, uploader ObjectUploader, bucket, prefix string) *BackupService {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &BackupService{store: store, uploader: uploader, bucket: bucket, prefix: prefix, now: time.Now}
}

// Backup uploads one snapshot and returns its object key.
func (s *BackupService) Backup(ctx context.Context) (string, error) {
	data, err := s.store.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot datastore: %w", err)
	}

	key := fmt.Sprintf("%sdb-%s.json", s.prefix, s.now().UTC().Format("20060102T150405Z"))
	_, err = s.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	log.Info().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(data)).Msg("Datastore backup uploaded")
	return key, nil
}
