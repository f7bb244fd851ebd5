// Package s3 publishes star-schema tables as Hive-partitioned parquet objects
// in an S3 bucket (or any S3-compatible endpoint):
//
//	s3://<bucket>/<prefix>/<table>/<col>=<value>/.../part-00000.parquet
//
// Each table is rendered to a local staging directory with the parquet
// sink's writer, the table prefix is cleared, then every file is uploaded.
package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"sparkify/internal/logging"
	"sparkify/internal/schema"
	"sparkify/internal/storage"
	"sparkify/internal/storage/parquet"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	pq "github.com/xitongsys/parquet-go/parquet"
)

func init() {
	storage.Register("s3", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(cfg)
	})
}

// objectStore is the slice of S3 the sink needs.
type objectStore interface {
	DeletePrefix(ctx context.Context, bucket, prefix string) error
	Upload(ctx context.Context, bucket, key string, body io.Reader) error
}

type awsStore struct {
	client   *awss3.S3
	uploader *s3manager.Uploader
	deleter  *s3manager.BatchDelete
}

func newAWSStore(region, endpoint string) (*awsStore, error) {
	conf := &aws.Config{}
	if region != "" {
		conf.Region = aws.String(region)
	}
	if endpoint != "" {
		conf.Endpoint = aws.String(endpoint)
		conf.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(conf)
	if err != nil {
		return nil, fmt.Errorf("s3: session: %w", err)
	}
	client := awss3.New(sess)
	return &awsStore{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		deleter:  s3manager.NewBatchDeleteWithClient(client),
	}, nil
}

func (a *awsStore) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	iter := s3manager.NewDeleteListIterator(a.client, &awss3.ListObjectsInput{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	return a.deleter.Delete(ctx, iter)
}

func (a *awsStore) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	_, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	return err
}

// Sink is an S3 storage.Sink.
type Sink struct {
	store   objectStore
	bucket  string
	prefix  string
	staging string
	codec   pq.CompressionCodec
}

// New builds a Sink from cfg. Bucket is required; Root, when set, hosts the
// local staging directories.
func New(cfg storage.Config) (*Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	store, err := newAWSStore(cfg.Region, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return newSink(store, cfg)
}

func newSink(store objectStore, cfg storage.Config) (*Sink, error) {
	codec, err := parquet.ParseCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return &Sink{store: store, bucket: cfg.Bucket, prefix: cfg.Prefix, staging: cfg.Root, codec: codec}, nil
}

// TablePrefix returns the object prefix (with trailing slash) for table.
func (s *Sink) TablePrefix(table string) string {
	return path.Join(s.prefix, table) + "/"
}

// Write replaces every object under the table prefix with the new partitions.
func (s *Sink) Write(ctx context.Context, table schema.Table, rows [][]any) (int64, error) {
	if s.staging != "" {
		if err := os.MkdirAll(s.staging, 0o755); err != nil {
			return 0, &storage.WriteError{Table: table.Name, Err: err}
		}
	}
	dir, err := os.MkdirTemp(s.staging, "sparkify-"+table.Name+"-")
	if err != nil {
		return 0, &storage.WriteError{Table: table.Name, Err: fmt.Errorf("staging: %w", err)}
	}
	defer os.RemoveAll(dir)

	files, err := parquet.WriteDir(ctx, dir, table, rows, s.codec)
	if err != nil {
		return 0, &storage.WriteError{Table: table.Name, Err: err}
	}

	prefix := s.TablePrefix(table.Name)
	if err := s.store.DeletePrefix(ctx, s.bucket, prefix); err != nil {
		return 0, &storage.WriteError{Table: table.Name, Err: fmt.Errorf("clear s3://%s/%s: %w", s.bucket, prefix, err)}
	}
	for _, rel := range files {
		key := prefix + rel
		if err := s.upload(ctx, filepath.Join(dir, filepath.FromSlash(rel)), key); err != nil {
			return 0, &storage.WriteError{Table: table.Name, Err: fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)}
		}
	}

	logging.Debug().Str("table", table.Name).Str("bucket", s.bucket).Str("prefix", prefix).
		Int("objects", len(files)).Msg("s3: table published")
	return int64(len(rows)), nil
}

func (s *Sink) upload(ctx context.Context, local, key string) error {
	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.store.Upload(ctx, s.bucket, key, f)
}

func (s *Sink) Close() error { return nil }
