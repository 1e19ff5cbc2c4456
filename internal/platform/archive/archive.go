// Package archive writes dead-lettered queue messages to S3-compatible object
// storage so the dead-letter queue can be emptied without losing evidence.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/fitcoach/coach/internal/config"
	"github.com/fitcoach/coach/internal/queue"
)

var (
	// ErrNoBucket is returned when archiving is requested without a bucket.
	ErrNoBucket = errors.New("archive bucket is not configured")

	// ErrUpload is returned when an object could not be written.
	ErrUpload = errors.New("archive upload failed")
)

// Uploader is the subset of *s3.Client used by Archiver.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Entry is the JSON document stored for each archived message.
type Entry struct {
	MessageID   string          `json:"message_id"`
	Queue       string          `json:"queue"`
	SourceQueue string          `json:"source_queue,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Attempt     int             `json:"attempt"`
	Redelivered bool            `json:"redelivered"`
	PublishedAt time.Time       `json:"published_at,omitempty"`
	ArchivedAt  time.Time       `json:"archived_at"`
	Headers     map[string]any  `json:"headers,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	RawPayload  string          `json:"raw_payload,omitempty"`
}

// Archiver uploads dead letters as one object each.
type Archiver struct {
	client Uploader
	bucket string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithClock overrides the clock used for archive timestamps and key dates.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// NewArchiver wraps an existing client.
func NewArchiver(client Uploader, bucket string, logger *slog.Logger, opts ...Option) (*Archiver, error) {
	if client == nil {
		return nil, errors.New("uploader cannot be nil")
	}
	if bucket == "" {
		return nil, ErrNoBucket
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Archiver{
		client: client,
		bucket: bucket,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "dlq_archive"), slog.String("bucket", bucket)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewS3Archiver builds an S3 client from cfg. A custom endpoint and path-style
// addressing support MinIO and other S3-compatible stores. Static credentials
// are used when an access key is configured, otherwise the default AWS chain.
func NewS3Archiver(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewArchiver(client, cfg.Bucket, logger)
}

// Key returns the object key for a message archived from queueName at t:
// dlq/<queue>/<yyyy-mm-dd>/<message-id>.json.
func Key(queueName, messageID string, t time.Time) string {
	return fmt.Sprintf("dlq/%s/%s/%s.json", queueName, t.UTC().Format(time.DateOnly), messageID)
}

// Archive stores dl under Key. It matches the callback shape of
// queue.Client.Drain, so a message is only acked once its object exists.
func (a *Archiver) Archive(ctx context.Context, queueName string, dl queue.DeadLetter) (string, error) {
	at := a.now()
	id := dl.MessageID
	if id == "" {
		id = "unidentified-" + uuid.NewString()
	}

	entry := Entry{
		MessageID:   id,
		Queue:       queueName,
		SourceQueue: dl.SourceQueue,
		Reason:      dl.Reason,
		Attempt:     dl.Attempt,
		Redelivered: dl.Redelivered,
		PublishedAt: dl.Timestamp,
		ArchivedAt:  at,
		Headers:     dl.Headers,
	}
	if json.Valid(dl.Body) {
		entry.Payload = json.RawMessage(dl.Body)
	} else {
		entry.RawPayload = string(dl.Body)
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode archive entry %s: %w", id, err)
	}

	key := Key(queueName, id, at)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		a.logger.Error("failed to archive dead letter",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return "", fmt.Errorf("%w: %s: %w", ErrUpload, key, err)
	}

	a.logger.Info("dead letter archived",
		slog.String("key", key),
		slog.String("reason", dl.Reason))
	return key, nil
}

// DrainFunc adapts Archive to the callback taken by queue.Client.Drain.
func (a *Archiver) DrainFunc(queueName string) func(ctx context.Context, dl queue.DeadLetter) error {
	return func(ctx context.Context, dl queue.DeadLetter) error {
		_, err := a.Archive(ctx, queueName, dl)
		return err
	}
}
