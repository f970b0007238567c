package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReturnsBody(t *testing.T) {
	t.Parallel()

	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.Client(), Options{UserAgent: "DigestTest/1.0"}, nil)
	body, err := f.Fetch(context.Background(), server.URL+"/page")

	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))
	assert.Equal(t, "DigestTest/1.0", agent.Load())
}

func TestFetchNonOKIsError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(server.Client(), Options{}, nil).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestFetchRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPFetcher(nil, Options{}, nil).Fetch(context.Background(), "/relative")
	require.Error(t, err)
}

func TestFetchTimeoutIsError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := server.Client()
	client.Timeout = 50 * time.Millisecond
	_, err := NewHTTPFetcher(client, Options{}, nil).Fetch(context.Background(), server.URL)
	require.Error(t, err)
}

func TestFetchTruncatesLargeBodies(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(server.Client(), Options{MaxBodyBytes: 4}, nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(body))
}

func TestFetchRespectsRobots(t *testing.T) {
	t.Parallel()

	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		_, _ = w.Write([]byte("public"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.Client(), Options{RespectRobots: true, UserAgent: "DigestTest"}, nil)
	ctx := context.Background()

	body, err := f.Fetch(ctx, server.URL+"/public")
	require.NoError(t, err)
	assert.Equal(t, "public", string(body))

	_, err = f.Fetch(ctx, server.URL+"/private/page")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisallowed))

	assert.Equal(t, int32(1), robotsHits.Load())
}

func TestFetchMissingRobotsAllows(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.Client(), Options{RespectRobots: true}, nil)
	_, err := f.Fetch(context.Background(), server.URL+"/anything")
	require.NoError(t, err)
}
