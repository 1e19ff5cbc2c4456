package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coach/internal/config"
	"github.com/fitcoach/coach/internal/queue"
)

type storedObject struct {
	bucket      string
	key         string
	contentType string
	body        []byte
}

type fakeUploader struct {
	mu      sync.Mutex
	err     error
	objects []storedObject
}

func (f *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects = append(f.objects, storedObject{
		bucket:      aws.ToString(in.Bucket),
		key:         aws.ToString(in.Key),
		contentType: aws.ToString(in.ContentType),
		body:        body,
	})
	return &s3.PutObjectOutput{}, nil
}

var archivedAt = time.Date(2024, 6, 3, 23, 30, 0, 0, time.UTC)

func newTestArchiver(t *testing.T, up Uploader) *Archiver {
	t.Helper()
	a, err := NewArchiver(up, "coach-dlq", slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithClock(func() time.Time { return archivedAt }))
	require.NoError(t, err)
	return a
}

func TestNewArchiver(t *testing.T) {
	t.Parallel()

	_, err := NewArchiver(nil, "bucket", nil)
	assert.Error(t, err)

	_, err = NewArchiver(&fakeUploader{}, "", nil)
	assert.ErrorIs(t, err, ErrNoBucket)

	_, err = NewS3Archiver(context.Background(), config.ArchiveConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoBucket)
}

func TestKey(t *testing.T) {
	t.Parallel()

	local := time.Date(2024, 6, 4, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	assert.Equal(t, "dlq/wod-requests/2024-06-03/msg-1.json", Key("wod-requests", "msg-1", local))
}

func TestArchive_WritesJSONEntry(t *testing.T) {
	t.Parallel()

	up := &fakeUploader{}
	a := newTestArchiver(t, up)

	dl := queue.DeadLetter{
		Message: queue.Message{
			Body:      []byte(`{"request_id":"r-1","user_email":"ada@example.com"}`),
			MessageID: "r-1",
			Attempt:   2,
		},
		Headers:     map[string]any{"x-retry-count": int32(2)},
		Reason:      "rejected",
		SourceQueue: "wod-requests",
	}

	key, err := a.Archive(context.Background(), "wod-requests-dead", dl)
	require.NoError(t, err)
	assert.Equal(t, "dlq/wod-requests-dead/2024-06-03/r-1.json", key)

	require.Len(t, up.objects, 1)
	obj := up.objects[0]
	assert.Equal(t, "coach-dlq", obj.bucket)
	assert.Equal(t, key, obj.key)
	assert.Equal(t, "application/json", obj.contentType)

	var entry Entry
	require.NoError(t, json.Unmarshal(obj.body, &entry))
	assert.Equal(t, "r-1", entry.MessageID)
	assert.Equal(t, "rejected", entry.Reason)
	assert.Equal(t, "wod-requests", entry.SourceQueue)
	assert.Equal(t, 2, entry.Attempt)
	assert.Equal(t, archivedAt, entry.ArchivedAt)
	assert.JSONEq(t, `{"request_id":"r-1","user_email":"ada@example.com"}`, string(entry.Payload))
	assert.Empty(t, entry.RawPayload)
	assert.EqualValues(t, 2, entry.Headers["x-retry-count"])
}

func TestArchive_NonJSONPayloadKeptRaw(t *testing.T) {
	t.Parallel()

	up := &fakeUploader{}
	a := newTestArchiver(t, up)

	key, err := a.Archive(context.Background(), "wod-requests-dead", queue.DeadLetter{
		Message: queue.Message{Body: []byte("not json")},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "dlq/wod-requests-dead/2024-06-03/unidentified-"))

	var entry Entry
	require.NoError(t, json.Unmarshal(up.objects[0].body, &entry))
	assert.Equal(t, "not json", entry.RawPayload)
	assert.Empty(t, entry.Payload)
}

func TestArchive_UploadFailure(t *testing.T) {
	t.Parallel()

	a := newTestArchiver(t, &fakeUploader{err: errors.New("access denied")})

	err := a.DrainFunc("wod-requests-dead")(context.Background(), queue.DeadLetter{
		Message: queue.Message{Body: []byte(`{}`), MessageID: "m-9"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpload)
	assert.Contains(t, err.Error(), "dlq/wod-requests-dead/2024-06-03/m-9.json")
}
