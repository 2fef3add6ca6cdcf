package sink

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/neox5/decodeceph/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path        string
	query       url.Values
	contentType string
	body        string
}

func captureServer(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{
			path:        r.URL.Path,
			query:       r.URL.Query(),
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedRequest(nil), reqs...)
	}
}

func TestInflux_Write(t *testing.T) {
	srv, requests := captureServer(t, http.StatusNoContent)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	s := NewInflux(config.InfluxConfig{
		Host:     u.Hostname(),
		Port:     u.Port(),
		User:     "admin",
		Password: "s3cret",
	}, newHTTPClient(testLogger(), 0, time.Second))

	require.NoError(t, s.Write(context.Background(), testOperation()))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/write", reqs[0].path)
	assert.Equal(t, "ceph", reqs[0].query.Get("db"))
	assert.Equal(t, "admin", reqs[0].query.Get("u"))
	assert.Equal(t, "s3cret", reqs[0].query.Get("p"))
	assert.Equal(t,
		"ceph_operation,dst=10.0.0.2:6801,kind=write,src=10.0.0.1:6800 size=4096i,latency_ms=1.5 1709287200000000000\n",
		reqs[0].body)
}

func TestInflux_ErrorStatus(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	s := NewInflux(config.InfluxConfig{Host: u.Hostname(), Port: u.Port()}, newHTTPClient(testLogger(), 0, time.Second))

	err = s.Write(context.Background(), testOperation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
}

func TestLineProtocol_EscapesAndOmitsEmptyTags(t *testing.T) {
	op := testOperation()
	op.Kind = "osd op,x=1"
	op.Destination = ""

	line, err := lineProtocol(op)
	require.NoError(t, err)
	assert.Equal(t,
		`ceph_operation,kind=osd\ op\,x\=1,src=10.0.0.1:6800 size=4096i,latency_ms=1.5 1709287200000000000`+"\n",
		string(line))
}

func TestLineProtocol_NoTags(t *testing.T) {
	op := testOperation()
	op.Kind = ""
	op.Source = ""
	op.Destination = ""

	line, err := lineProtocol(op)
	require.NoError(t, err)
	assert.Equal(t, "ceph_operation size=4096i,latency_ms=1.5 1709287200000000000\n", string(line))
}

func TestElasticsearch_Write(t *testing.T) {
	srv, requests := captureServer(t, http.StatusCreated)

	s := NewElasticsearch(srv.URL+"/ceph/operations", newHTTPClient(testLogger(), 0, time.Second))
	require.NoError(t, s.Write(context.Background(), testOperation()))

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/ceph/operations", reqs[0].path)
	assert.Equal(t, "application/json", reqs[0].contentType)
	assert.JSONEq(t, `{
		"timestamp": "2024-03-01T10:00:00Z",
		"src": "10.0.0.1:6800",
		"dst": "10.0.0.2:6801",
		"kind": "write",
		"object": "rbd_data.1",
		"size": 4096,
		"latency_ms": 1.5
	}`, reqs[0].body)
}

func TestElasticsearch_RetriesServerErrors(t *testing.T) {
	srv, requests := captureServer(t, http.StatusServiceUnavailable)

	s := NewElasticsearch(srv.URL, newHTTPClient(testLogger(), 1, time.Second))
	s.client.RetryWaitMin = time.Millisecond
	s.client.RetryWaitMax = time.Millisecond

	require.Error(t, s.Write(context.Background(), testOperation()))
	assert.Len(t, requests(), 2)
}
