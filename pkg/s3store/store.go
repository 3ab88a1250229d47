package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

// Object metadata keys. S3 returns them lower-cased.
const (
	metaPreviousID    = "previous-id"
	metaTrigger       = "trigger"
	metaPhase         = "phase"
	metaState         = "state"
	metaCapturedAt    = "captured-at"
	metaSchemaVersion = "schema-version"
	metaEncoding      = "encoding"
)

// Client defines the S3 operations used by Backend.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Backend stores one object per snapshot: the payload as the body and the
// envelope as user metadata. S3 cannot assign ids, so the id generated by the
// snapshot.Store becomes the object key.
type Backend struct {
	client Client
	bucket string
	prefix string
}

type Option func(*options)

type options struct {
	client        Client
	configOptions []func(*config.LoadOptions) error
}

// WithClient sets a pre-configured client, typically a mock in tests.
func WithClient(c Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithConfigOption adds an AWS config loading option.
func WithConfigOption(opt func(*config.LoadOptions) error) Option {
	return func(o *options) {
		o.configOptions = append(o.configOptions, opt)
	}
}

func New(ctx context.Context, cfg Config, opts ...Option) (*Backend, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
			)
		}
		awsOptions = append(awsOptions, o.configOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}
		client = s3.NewFromConfig(awsConfig, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
		})
	}

	return &Backend{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (b *Backend) key(id string) string {
	return b.prefix + id
}

func (b *Backend) Append(ctx context.Context, s snapshot.Snapshot) (string, error) {
	id := s.ID
	if id == "" {
		id = snapshot.NewUUID()
	}

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(id)),
		Body:        bytes.NewReader(s.Payload),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			metaPreviousID:    s.PreviousID,
			metaTrigger:       s.Trigger,
			metaPhase:         string(s.Phase),
			metaState:         string(s.State),
			metaCapturedAt:    s.CapturedAt.UTC().Format(time.RFC3339Nano),
			metaSchemaVersion: s.SchemaVersion,
			metaEncoding:      s.Encoding,
		},
	})
	if err != nil {
		return "", classifyError(err, "put snapshot")
	}
	return id, nil
}

func (b *Backend) Get(ctx context.Context, id string) (snapshot.Snapshot, error) {
	if id == "" {
		return snapshot.Snapshot{}, snapshot.ErrNotFound
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		return snapshot.Snapshot{}, classifyError(err, "get snapshot")
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("s3store: read snapshot %s: %w", id, err)
	}

	meta := out.Metadata
	capturedAt, err := time.Parse(time.RFC3339Nano, meta[metaCapturedAt])
	if err != nil {
		return snapshot.Snapshot{}, errors.Join(ErrCorruptMetadata, err)
	}

	return snapshot.Snapshot{
		ID:            id,
		PreviousID:    meta[metaPreviousID],
		Trigger:       meta[metaTrigger],
		Phase:         statemachine.Phase(meta[metaPhase]),
		State:         statemachine.State(meta[metaState]),
		CapturedAt:    capturedAt,
		SchemaVersion: meta[metaSchemaVersion],
		Encoding:      meta[metaEncoding],
		Payload:       payload,
	}, nil
}

// Healthcheck reports whether the bucket exists and is reachable with the
// configured credentials.
func (b *Backend) Healthcheck(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	if err == nil {
		return nil
	}
	// HeadBucket has no body, so a missing bucket surfaces as a bare NotFound.
	var nf *types.NotFound
	var apiErr smithy.APIError
	if errors.As(err, &nf) || (errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound") {
		return errors.Join(ErrHealthcheckFailed, ErrBucketNotFound)
	}
	return errors.Join(ErrHealthcheckFailed, classifyError(err, "head bucket"))
}

// classifyError maps SDK errors onto package errors. A missing key becomes
// snapshot.ErrNotFound so stores report absence instead of a fault.
func classifyError(err error, operation string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s", ErrOperationCanceled, operation)
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return snapshot.ErrNotFound
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return snapshot.ErrNotFound
		case "NoSuchBucket":
			return ErrBucketNotFound
		case "AccessDenied":
			return fmt.Errorf("%w: %s", ErrAccessDenied, operation)
		case "SlowDown", "ServiceUnavailable":
			return fmt.Errorf("%w: %s", ErrServiceUnavailable, operation)
		}
	}

	return fmt.Errorf("s3store: %s: %w", operation, err)
}
