// Package archive writes shipped record batches to S3 as gzipped JSON lines.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"versalex-ingest/config"
	"versalex-ingest/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"
)

const (
	putTimeout = 10 * time.Second
	maxRetries = 4
)

type Archiver interface {
	Put(ctx context.Context, records []model.Record) error
}

// objectPutter is the part of *s3.Client the archiver uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Archiver struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Archiver returns nil when archiving is disabled.
func NewS3Archiver(cfg *config.Config) (Archiver, error) {
	if !cfg.Archive.Enabled {
		log.Info().Msg("S3 archive disabled")
		return nil, nil
	}
	if cfg.Archive.Bucket == "" {
		return nil, fmt.Errorf("archive enabled but ARCHIVE_BUCKET is empty")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.Archive.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.RetryMaxAttempts = 1
	})

	log.Info().Str("bucket", cfg.Archive.Bucket).Str("prefix", cfg.Archive.Prefix).Msg("S3 archive initialized")
	return newArchiver(client, cfg.Archive.Bucket, cfg.Archive.Prefix), nil
}

func newArchiver(client objectPutter, bucket, prefix string) *s3Archiver {
	return &s3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// encodeBatch renders records as JSON lines inside one gzip stream.
func encodeBatch(records []model.Record) ([]byte, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(gz)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			_ = gz.Close()
			return nil, fmt.Errorf("encode record %s: %w", r.EventID, err)
		}
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// objectKey partitions objects by the UTC hour of the first record.
func (a *s3Archiver) objectKey(first model.Record) string {
	ts := first.Timestamp.UTC()
	host := strings.ReplaceAll(first.Host, "/", "_")
	return fmt.Sprintf("%sdt=%s/hr=%s/%s_%s.jsonl.gz",
		a.prefix, ts.Format("2006-01-02"), ts.Format("15"), host, uuid.NewString())
}

func (a *s3Archiver) Put(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	body, err := encodeBatch(records)
	if err != nil {
		return err
	}
	key := a.objectKey(records[0])

	operation := func() error {
		putCtx, cancel := context.WithTimeout(ctx, putTimeout)
		defer cancel()
		_, err := a.client.PutObject(putCtx, &s3.PutObjectInput{
			Bucket:          aws.String(a.bucket),
			Key:             aws.String(key),
			Body:            bytes.NewReader(body),
			ContentLength:   aws.Int64(int64(len(body))),
			ContentType:     aws.String("application/x-ndjson"),
			ContentEncoding: aws.String("gzip"),
		})
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	err = backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("key", key).Dur("retry_in", wait).Msg("S3 put failed, retrying")
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	log.Debug().Str("key", key).Int("records", len(records)).Int("bytes", len(body)).Msg("Archived batch to S3")
	return nil
}
