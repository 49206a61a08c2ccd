package pathstore

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docstruct/internal/outline"
	"github.com/dgallion1/docstruct/internal/tree"
)

type recorded struct {
	method string
	path   string
	body   string
}

func fakePathstore(t *testing.T, status func(r *http.Request) int) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{r.Method, r.URL.RequestURI(), string(body)})
		mu.Unlock()
		w.WriteHeader(status(r))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func testClient(url string) *Client {
	c := NewClient(url, "key")
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestPublishTree(t *testing.T) {
	srv, requests := fakePathstore(t, func(*http.Request) int { return http.StatusOK })
	pub := NewPublisher(testClient(srv.URL), slog.New(slog.NewTextHandler(io.Discard, nil)))

	tr := tree.Build([]outline.Entry{
		{Title: "Ch 1", Level: 0, Page: outline.IntPtr(1)},
		{Title: "Intro", Level: 1, Page: outline.IntPtr(2)},
	}, tree.Options{})

	require.NoError(t, pub.PublishTree(context.Background(), "my proj", "doc1", tr.Export()))

	reqs := requests()
	require.Len(t, reqs, 5)
	prefix := "/kv/docstruct/projects/my%20proj/documents/doc1"
	assert.Equal(t, recorded{http.MethodDelete, prefix + "?children=true", ""}, reqs[0])
	assert.Equal(t, prefix+"/tree", reqs[1].path)
	assert.Equal(t, prefix+"/nodes/ch-1", reqs[2].path)
	assert.Equal(t, prefix+"/nodes/ch-1/intro", reqs[3].path)
	assert.Equal(t, "/links", reqs[4].path)

	var link LinkRequest
	require.NoError(t, json.Unmarshal([]byte(reqs[4].body), &link))
	assert.True(t, strings.HasSuffix(link.From, "/nodes/ch-1/intro"))
	assert.True(t, strings.HasSuffix(link.To, "/nodes/ch-1"))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv, _ := fakePathstore(t, func(*http.Request) int {
		if calls.Add(1) < 3 {
			return http.StatusServiceUnavailable
		}
		return http.StatusCreated
	})

	err := testClient(srv.URL).PutNode(context.Background(), "a/b", NodeRequest{Value: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv, _ := fakePathstore(t, func(*http.Request) int {
		calls.Add(1)
		return http.StatusTooManyRequests
	})

	err := testClient(srv.URL).PutNode(context.Background(), "a", NodeRequest{Value: 1})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, int32(MaxRetries), calls.Load())
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv, _ := fakePathstore(t, func(*http.Request) int {
		calls.Add(1)
		return http.StatusBadRequest
	})

	err := testClient(srv.URL).PutLink(context.Background(), LinkRequest{From: "a", To: "b"})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DeleteMissingIsOK(t *testing.T) {
	srv, _ := fakePathstore(t, func(*http.Request) int { return http.StatusNotFound })
	assert.NoError(t, testClient(srv.URL).DeleteNode(context.Background(), "gone", true))
}

func TestBackoff(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/2)
	}
	assert.Less(t, Backoff(10), 45*time.Second)
}
