package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"forestwatch/internal/types"
)

// S3Client is the slice of the S3 API the publisher needs.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads rendered alert documents to S3 so downstream
// consumers never depend on the analyzer host's filesystem.
type Publisher struct {
	client S3Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewPublisher creates a Publisher writing under the given bucket and key
// prefix.
func NewPublisher(client S3Client, bucket, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

// Publish uploads the document under {prefix}/{analysisDate}/alerts.json
// and returns the object key. One key per analysis date: rerunning a date
// replaces that date's artifact.
func (p *Publisher) Publish(ctx context.Context, data []byte, analysisDate string) (string, error) {
	key := path.Join(p.prefix, analysisDate, "alerts.json")

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalExport,
			fmt.Sprintf("failed to upload alerts to s3://%s/%s", p.bucket, key),
			err,
		)
	}

	p.logger.InfoContext(ctx, "alerts published",
		"bucket", p.bucket,
		"key", key,
		"bytes", len(data),
	)
	return key, nil
}
