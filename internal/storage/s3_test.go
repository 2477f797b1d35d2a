package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"lead-chat/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3Store(t *testing.T) *S3Store {
	store, err := NewS3Store(context.Background(), config.S3StorageConfig{
		Region:          "us-east-1",
		Bucket:          "attachments",
		Endpoint:        "http://minio.test:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	return store
}

func TestS3Store_SignedURL(t *testing.T) {
	store := newTestS3Store(t)

	signed, err := store.SignedURL(context.Background(), "leads/1/abc_Q1__2.pdf", 60*time.Second)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "minio.test:9000", u.Host)
	assert.Equal(t, "/attachments/leads/1/abc_Q1__2.pdf", u.Path, "custom endpoints use path-style addressing")

	q := u.Query()
	assert.Equal(t, "60", q.Get("X-Amz-Expires"))
	assert.Contains(t, q.Get("X-Amz-Credential"), "AKIDEXAMPLE/")
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))
}

func TestS3Store_RejectsInvalidKeys(t *testing.T) {
	store := newTestS3Store(t)

	_, err := store.SignedURL(context.Background(), "../secret", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidPath)

	err = store.Put(context.Background(), "/abs/key", "text/plain", nil, 0)
	assert.ErrorIs(t, err, ErrInvalidPath)
}
