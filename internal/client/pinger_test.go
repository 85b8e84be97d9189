package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"partscatalog/sitemap/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinger_Ping(t *testing.T) {
	var mu sync.Mutex
	var got []string

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.URL.Query().Get("sitemap"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	missing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer missing.Close()

	p := NewPinger(config.PingConfig{
		Endpoints:  []string{ok.URL + "/ping", missing.URL + "/ping"},
		Timeout:    2 * time.Second,
		MaxRetries: 0,
	})
	defer p.Close()

	results := p.Ping(context.Background(), "https://parts.example.com/sitemap.xml")
	require.Len(t, results, 2)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, http.StatusOK, results[0].StatusCode)
	assert.Equal(t, []string{"https://parts.example.com/sitemap.xml"}, got)

	assert.Error(t, results[1].Err)
	assert.Equal(t, http.StatusNotFound, results[1].StatusCode)
}

func TestPinger_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPinger(config.PingConfig{Endpoints: []string{srv.URL}})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.Ping(ctx, "https://parts.example.com/sitemap.xml")
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}
