package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, endpoint string) *S3Storage {
	t.Helper()
	st, err := NewS3Storage(context.Background(), Options{
		Bucket:          "exports",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "AKID",
		SecretAccessKey: "SECRET",
	})
	require.NoError(t, err)
	return st
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), Options{})
	assert.Error(t, err)
}

func TestS3Storage_Save(t *testing.T) {
	var (
		mu       sync.Mutex
		gotPath  string
		gotType  string
		gotBody  string
		gotCalls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotCalls++
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	st := newTestStorage(t, server.URL)
	err := st.Save(context.Background(), "forms/f1/export.csv", "text/csv", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, gotCalls)
	assert.Equal(t, "/exports/forms/f1/export.csv", gotPath)
	assert.Equal(t, "text/csv", gotType)
	assert.Contains(t, gotBody, "1,2")
}

func TestS3Storage_RejectsTraversal(t *testing.T) {
	st := newTestStorage(t, "http://127.0.0.1:1")
	assert.Error(t, st.Save(context.Background(), "../secret", "text/plain", strings.NewReader("")))
	_, err := st.PresignURL(context.Background(), "a/../../b", time.Minute)
	assert.Error(t, err)
}

func TestS3Storage_PresignURL(t *testing.T) {
	st := newTestStorage(t, "http://minio.local:9000")

	link, err := st.PresignURL(context.Background(), "forms/f1/export.csv", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "minio.local:9000", u.Host)
	assert.Equal(t, "/exports/forms/f1/export.csv", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("response-content-disposition"), "export.csv")
}
