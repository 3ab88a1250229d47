package s3store_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/persistfsm/pkg/s3store"
	"github.com/dmitrymomot/persistfsm/pkg/snapshot"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

// MockS3Client is a mock implementation of the s3store.Client interface
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func (m *MockS3Client) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadBucketOutput), args.Error(1)
}

func newBackend(t *testing.T, client s3store.Client) *s3store.Backend {
	t.Helper()
	b, err := s3store.New(context.Background(), s3store.Config{
		Bucket: "fsm",
		Region: "eu-central-1",
		Prefix: "snapshots/",
	}, s3store.WithClient(client))
	require.NoError(t, err)
	return b
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("missing bucket", func(t *testing.T) {
		t.Parallel()
		_, err := s3store.New(context.Background(), s3store.Config{Region: "us-east-1"})
		assert.ErrorIs(t, err, s3store.ErrInvalidConfig)
	})

	t.Run("static credentials", func(t *testing.T) {
		t.Parallel()
		b, err := s3store.New(context.Background(), s3store.Config{
			Bucket:         "fsm",
			Region:         "us-east-1",
			AccessKeyID:    "key",
			SecretKey:      "secret",
			Endpoint:       "http://localhost:9000",
			ForcePathStyle: true,
		})
		require.NoError(t, err)
		assert.NotNil(t, b)
	})
}

func TestAppend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	client := new(MockS3Client)
	client.On("PutObject", mock.Anything,
		mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			body, ok := in.Body.(*bytes.Reader)
			return ok && body.Len() == len(`{"state":"sent"}`) &&
				*in.Bucket == "fsm" &&
				*in.Key == "snapshots/abc" &&
				in.Metadata["previous-id"] == "prev" &&
				in.Metadata["phase"] == "after" &&
				in.Metadata["captured-at"] == "2024-06-01T09:30:00Z"
		}),
		mock.Anything,
	).Return(&s3.PutObjectOutput{}, nil).Once()

	id, err := newBackend(t, client).Append(ctx, snapshot.Snapshot{
		ID:            "abc",
		PreviousID:    "prev",
		Trigger:       "send",
		Phase:         statemachine.PhaseAfter,
		State:         "sent",
		CapturedAt:    at,
		SchemaVersion: "1",
		Encoding:      "json",
		Payload:       []byte(`{"state":"sent"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", id)
	client.AssertExpectations(t)
}

func TestAppendGeneratesID(t *testing.T) {
	t.Parallel()

	client := new(MockS3Client)
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(&s3.PutObjectOutput{}, nil)

	id, err := newBackend(t, client).Append(context.Background(), snapshot.Snapshot{})
	require.NoError(t, err)
	assert.Len(t, id, 32)
}

func TestGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	client := new(MockS3Client)
	client.On("GetObject", mock.Anything,
		mock.MatchedBy(func(in *s3.GetObjectInput) bool { return *in.Key == "snapshots/abc" }),
		mock.Anything,
	).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader([]byte("payload"))),
		Metadata: map[string]string{
			"previous-id":    "prev",
			"trigger":        "send",
			"phase":          "after",
			"state":          "sent",
			"captured-at":    "2024-06-01T09:30:00Z",
			"schema-version": "1",
			"encoding":       "yaml+zstd",
		},
	}, nil)

	s, err := newBackend(t, client).Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, "prev", s.PreviousID)
	assert.Equal(t, statemachine.State("sent"), s.State)
	assert.Equal(t, "yaml+zstd", s.Encoding)
	assert.Equal(t, []byte("payload"), s.Payload)
	assert.Equal(t, 2024, s.CapturedAt.Year())
}

func TestGetCorruptMetadata(t *testing.T) {
	t.Parallel()

	client := new(MockS3Client)
	client.On("GetObject", mock.Anything, mock.Anything, mock.Anything).Return(&s3.GetObjectOutput{
		Body:     io.NopCloser(bytes.NewReader(nil)),
		Metadata: map[string]string{"captured-at": "yesterday"},
	}, nil)

	_, err := newBackend(t, client).Get(context.Background(), "abc")
	assert.ErrorIs(t, err, s3store.ErrCorruptMetadata)
}

func TestGetErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		notFound bool
		target   error
	}{
		{name: "no such key", err: &types.NoSuchKey{}, notFound: true},
		{name: "api not found", err: &smithy.GenericAPIError{Code: "NotFound"}, notFound: true},
		{name: "no such bucket", err: &types.NoSuchBucket{}, target: s3store.ErrBucketNotFound},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, target: s3store.ErrAccessDenied},
		{name: "slow down", err: &smithy.GenericAPIError{Code: "SlowDown"}, target: s3store.ErrServiceUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, target: s3store.ErrOperationTimeout},
		{name: "canceled", err: context.Canceled, target: s3store.ErrOperationCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := new(MockS3Client)
			client.On("GetObject", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			_, err := newBackend(t, client).Get(context.Background(), "abc")
			require.Error(t, err)
			assert.Equal(t, tt.notFound, snapshot.IsNotFound(err))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestGetEmptyID(t *testing.T) {
	t.Parallel()

	client := new(MockS3Client)
	_, err := newBackend(t, client).Get(context.Background(), "")
	assert.True(t, snapshot.IsNotFound(err))
	client.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything)
}

func TestPutErrorPassesThrough(t *testing.T) {
	t.Parallel()
	boom := errors.New("connection reset by peer")

	client := new(MockS3Client)
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

	_, err := newBackend(t, client).Append(context.Background(), snapshot.Snapshot{ID: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestHealthcheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	headFor := func(bucket string) any {
		return mock.MatchedBy(func(in *s3.HeadBucketInput) bool { return *in.Bucket == bucket })
	}

	t.Run("bucket reachable", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("HeadBucket", ctx, headFor("fsm"), mock.Anything).Return(&s3.HeadBucketOutput{}, nil)

		assert.NoError(t, newBackend(t, client).Healthcheck(ctx))
		client.AssertExpectations(t)
	})

	t.Run("bucket missing", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("HeadBucket", ctx, headFor("fsm"), mock.Anything).Return(nil, &types.NotFound{})

		err := newBackend(t, client).Healthcheck(ctx)
		assert.ErrorIs(t, err, s3store.ErrHealthcheckFailed)
		assert.ErrorIs(t, err, s3store.ErrBucketNotFound)
		assert.NotErrorIs(t, err, snapshot.ErrNotFound)
	})

	t.Run("access denied", func(t *testing.T) {
		t.Parallel()
		client := new(MockS3Client)
		client.On("HeadBucket", ctx, headFor("fsm"), mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "forbidden"})

		err := newBackend(t, client).Healthcheck(ctx)
		assert.ErrorIs(t, err, s3store.ErrHealthcheckFailed)
		assert.ErrorIs(t, err, s3store.ErrAccessDenied)
	})
}
