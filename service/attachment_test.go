package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/structiq/soqtender/config"
)

func newTestAttachments(t *testing.T) *AttachmentService {
	t.Helper()

	svc, err := NewAttachmentService(&config.MinioConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "test",
		SecretKey:  "test",
		Bucket:     "soq-attachments",
		UseSSL:     false,
		ExpireDays: 7,
	})
	require.NoError(t, err)
	return svc
}

// presigning is local URL signing, so no MinIO server is needed here

func TestNewUploadRef(t *testing.T) {
	svc := newTestAttachments(t)

	ref, uploadURL, err := svc.NewUploadRef(context.Background(), "method-statement.pdf")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(ref, "/method-statement.pdf"))
	require.Contains(t, uploadURL, "soq-attachments")
	require.Contains(t, uploadURL, "method-statement.pdf")

	// refs are unique per call
	other, _, err := svc.NewUploadRef(context.Background(), "method-statement.pdf")
	require.NoError(t, err)
	require.NotEqual(t, ref, other)

	// without a filename the ref is the bare id
	bare, _, err := svc.NewUploadRef(context.Background(), "")
	require.NoError(t, err)
	require.NotContains(t, bare, "/")
}

func TestPresignedGet(t *testing.T) {
	svc := newTestAttachments(t)

	url, err := svc.PresignedGet(context.Background(), "abc123/spec.pdf")
	require.NoError(t, err)
	require.Contains(t, url, "soq-attachments")
	require.Contains(t, url, "abc123/spec.pdf")
}

func TestAttachmentExpiry(t *testing.T) {
	svc := newTestAttachments(t)
	require.Equal(t, 7*24*time.Hour, svc.expiry())
}
