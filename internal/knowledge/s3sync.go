package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3GetObjectAPI is the subset of the S3 client used to mirror knowledge files.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Syncer downloads category files from a bucket into the knowledge directory.
type S3Syncer struct {
	client S3GetObjectAPI
	bucket string
	prefix string
	dir    string
	specs  []CategorySpec
	logger *slog.Logger
}

// SyncReport lists what a sync fetched.
type SyncReport struct {
	Downloaded []string `json:"downloaded"`
	Missing    []string `json:"missing"`
}

// NewS3Syncer mirrors s3://bucket/prefix<file> into dir for every spec.
func NewS3Syncer(client S3GetObjectAPI, bucket, prefix, dir string, specs []CategorySpec, logger *slog.Logger) *S3Syncer {
	if len(specs) == 0 {
		specs = DefaultCategories
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Syncer{client: client, bucket: bucket, prefix: prefix, dir: dir, specs: specs, logger: logger}
}

// Sync downloads every category object. Missing optional objects are skipped;
// a missing required object is an error since the loader could not start.
func (s *S3Syncer) Sync(ctx context.Context) (SyncReport, error) {
	var report SyncReport
	for _, spec := range s.specs {
		key := s.prefix + spec.File
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			var noKey *types.NoSuchKey
			if errors.As(err, &noKey) {
				report.Missing = append(report.Missing, spec.Name)
				if spec.Required {
					return report, fmt.Errorf("knowledge: required object s3://%s/%s missing", s.bucket, key)
				}
				continue
			}
			return report, fmt.Errorf("knowledge: fetching s3://%s/%s: %w", s.bucket, key, err)
		}

		data, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return report, fmt.Errorf("knowledge: reading s3://%s/%s: %w", s.bucket, key, err)
		}
		var doc Value
		if err := doc.UnmarshalJSON(data); err != nil {
			return report, fmt.Errorf("knowledge: s3://%s/%s is not valid JSON: %w", s.bucket, key, err)
		}
		if err := writeFileAtomic(filepath.Join(s.dir, spec.File), data); err != nil {
			return report, err
		}
		report.Downloaded = append(report.Downloaded, spec.Name)
	}
	s.logger.Info("knowledge mirrored from s3", "bucket", s.bucket, "downloaded", len(report.Downloaded), "missing", len(report.Missing))
	return report, nil
}
