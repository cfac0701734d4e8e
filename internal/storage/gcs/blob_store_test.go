package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// newTestBlobStore points a storage client at a fake JSON API server.
func newTestBlobStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, "newsrank-snapshots")
	require.NoError(t, err)
	return store
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(nil, "snapshots")
	require.ErrorContains(t, err, "client is required")
}

func TestDialRequiresBucket(t *testing.T) {
	_, err := Dial(context.Background(), " ")
	require.ErrorContains(t, err, "bucket name is required")
}

func TestPutObjectUploadsSnapshot(t *testing.T) {
	const objectName = "snapshots/top_articles_vnexpress.json"
	payload := `{"executeTime":"2024-10-17T02:00:00Z","articles":[]}`

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/b/newsrank-snapshots/o")
		assert.Equal(t, objectName, r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), payload)
		assert.Contains(t, string(body), "application/json")

		fmt.Fprintln(w, `{"name":"`+objectName+`","bucket":"newsrank-snapshots"}`)
	})

	store := newTestBlobStore(t, handler)
	uri, err := store.PutObject(context.Background(), "/"+objectName, "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "gs://newsrank-snapshots/"+objectName, uri)
}

func TestPutObjectServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	store := newTestBlobStore(t, handler)
	_, err := store.PutObject(context.Background(), "snapshots/top.json", "application/json", strings.NewReader("{}"))
	require.Error(t, err)
}

func TestPutObjectRequiresPath(t *testing.T) {
	store := newTestBlobStore(t, http.NotFoundHandler())
	_, err := store.PutObject(context.Background(), " / ", "application/json", strings.NewReader("{}"))
	require.ErrorContains(t, err, "path is required")
}
