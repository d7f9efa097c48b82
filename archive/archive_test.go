package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	tests := []struct {
		id, file, want string
	}{
		{"abc", "report.pdf", "pipelines/abc/report.pdf"},
		{"abc", "/tmp/upload/report.pdf", "pipelines/abc/report.pdf"},
		{"abc", `C:\Users\me\report.pdf`, "pipelines/abc/report.pdf"},
		{"abc", "", "pipelines/abc/upload"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.id, tt.file), "file %q", tt.file)
	}
}

func TestNop(t *testing.T) {
	url, err := Nop{}.Store(context.Background(), "k", []byte("x"), "text/plain")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestNewS3Archiver_Validation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  S3Config
	}{
		{"no bucket", S3Config{Region: "us-east-1"}},
		{"no region", S3Config{Bucket: "b"}},
		{"half credentials", S3Config{Bucket: "b", Region: "us-east-1", AccessKey: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Archiver(ctx, tt.cfg)
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

type recordedPut struct {
	method      string
	path        string
	contentType string
	body        string
}

func fakeS3(t *testing.T, status int) (*httptest.Server, *[]recordedPut) {
	t.Helper()
	var (
		mu   sync.Mutex
		puts []recordedPut
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		puts = append(puts, recordedPut{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &puts
}

func TestS3Archiver_Store(t *testing.T) {
	srv, puts := fakeS3(t, http.StatusOK)
	a, err := NewS3Archiver(context.Background(), S3Config{
		Bucket:    "uploads",
		Region:    "us-east-1",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		Endpoint:  srv.URL,
	})
	require.NoError(t, err)

	key := Key("abc", "report.pdf")
	url, err := a.Store(context.Background(), key, []byte("%PDF-1.4 body"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/uploads/pipelines/abc/report.pdf", url)

	require.Len(t, *puts, 1)
	put := (*puts)[0]
	assert.Equal(t, http.MethodPut, put.method)
	assert.Equal(t, "/uploads/pipelines/abc/report.pdf", put.path)
	assert.Equal(t, "application/pdf", put.contentType)
	assert.True(t, strings.Contains(put.body, "%PDF-1.4 body"))
}

func TestS3Archiver_StoreFailure(t *testing.T) {
	srv, _ := fakeS3(t, http.StatusForbidden)
	a, err := NewS3Archiver(context.Background(), S3Config{
		Bucket:    "uploads",
		Region:    "us-east-1",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		Endpoint:  srv.URL,
	})
	require.NoError(t, err)

	_, err = a.Store(context.Background(), "k", []byte("x"), "application/pdf")
	assert.Error(t, err)
}

func TestS3Archiver_PublicURL(t *testing.T) {
	a, err := NewS3Archiver(context.Background(), S3Config{Bucket: "b", Region: "eu-west-1", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/pipelines/x/f.pdf", a.objectURL("pipelines/x/f.pdf"))
}
