package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"partscatalog/sitemap/internal/catalog"
	"partscatalog/sitemap/internal/catalog/catalogtest"
	"partscatalog/sitemap/internal/config"
	"partscatalog/sitemap/internal/domain"
	"partscatalog/sitemap/internal/sitemap"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://parts.example.com"

func newTestServer(t *testing.T, repo *catalogtest.Repository) *Server {
	t.Helper()
	o := sitemap.NewOrchestrator(
		repo,
		catalog.NewPaginator(repo, 10, 0),
		catalog.NewResolver(repo, 100),
		nil,
		nil,
		sitemap.Options{BaseURL: testBase, ShardCapacity: 5, SampleSize: 3},
	)
	return New(config.ServerConfig{Host: "localhost", Port: 0, RequestTimeout: time.Second}, o)
}

func get(t *testing.T, s *Server, target string) (*http.Response, string) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func catalogFixture() *catalogtest.Repository {
	repo := catalogtest.NewRepository(catalogtest.Grid(2, 1, 7)...)
	repo.Add(domain.CatalogItem{ID: "c1", Name: "Clash", Category: "Maker 1", Subcategory: "Misc", Manufacturer: "Maker 2"})
	return repo
}

func TestServer_Index(t *testing.T) {
	s := newTestServer(t, catalogFixture())

	resp, body := get(t, s, "/sitemap.xml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))

	refs, err := sitemap.ParseIndex(strings.NewReader(body))
	require.NoError(t, err)
	var locs []string
	for _, r := range refs {
		locs = append(locs, r.Loc)
	}
	assert.Contains(t, locs, testBase+"/maker-1.xml")
	assert.Contains(t, locs, testBase+"/category-1.xml?page=2")
}

func TestServer_FixedDocuments(t *testing.T) {
	s := newTestServer(t, catalogFixture())

	for _, path := range []string{"/sitemap-main.xml", "/sitemap-categories.xml", "/sitemap-sample.xml"} {
		resp, body := get(t, s, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		_, err := sitemap.ParseURLSet(strings.NewReader(body))
		assert.NoError(t, err, path)
	}
}

func TestServer_CategoryPages(t *testing.T) {
	s := newTestServer(t, catalogFixture())

	resp, body := get(t, s, "/category-1.xml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries, err := sitemap.ParseURLSet(strings.NewReader(body))
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	resp, body = get(t, s, "/category-1.xml?page=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries, err = sitemap.ParseURLSet(strings.NewReader(body))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	resp, _ = get(t, s, "/category-1.xml?page=3")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, s, "/category-1.xml?page=abc")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ManufacturerWinsSharedSlug(t *testing.T) {
	s := newTestServer(t, catalogFixture())

	// "Maker 1" is both a manufacturer and a category name.
	resp, body := get(t, s, "/maker-1.xml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries, err := sitemap.ParseURLSet(strings.NewReader(body))
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, testBase+"/manufacturers/maker-1", entries[0].Loc)
}

func TestServer_ManufacturerHasSinglePage(t *testing.T) {
	s := newTestServer(t, catalogFixture())

	resp, _ := get(t, s, "/maker-2.xml?page=1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := get(t, s, "/maker-2.xml?page=7")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotContains(t, body, "<urlset")

	// The category sharing the slug is not reachable through later pages either.
	resp, _ = get(t, s, "/maker-1.xml?page=2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_UnknownDocument(t *testing.T) {
	s := newTestServer(t, catalogFixture())
	before := testutil.ToFloat64(HTTPResponses.WithLabelValues("/:name", "404"))

	resp, body := get(t, s, "/doesnotexist.xml")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/xml; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "<error><code>404</code><message>sitemap not found</message></error>")
	assert.NotContains(t, body, "<urlset")

	assert.Equal(t, before+1, testutil.ToFloat64(HTTPResponses.WithLabelValues("/:name", "404")))

	resp, _ = get(t, s, "/robots.txt")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, s, "/a/b/c.xml")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "<code>404</code>")
}

type stubRenderer struct {
	render func(ctx context.Context, w io.Writer) error
}

func (s stubRenderer) RenderOnDemandIndex(ctx context.Context, w io.Writer) error {
	return s.render(ctx, w)
}

func (s stubRenderer) RenderStatic(ctx context.Context, w io.Writer) error {
	return s.render(ctx, w)
}

func (s stubRenderer) RenderCategories(ctx context.Context, w io.Writer) error {
	return s.render(ctx, w)
}

func (s stubRenderer) RenderSample(ctx context.Context, w io.Writer) error {
	return s.render(ctx, w)
}

func (s stubRenderer) RenderManufacturer(ctx context.Context, w io.Writer, slug string) error {
	return s.render(ctx, w)
}

func (s stubRenderer) RenderCategoryPage(ctx context.Context, w io.Writer, slug string, page int) error {
	return s.render(ctx, w)
}

func TestServer_InternalError(t *testing.T) {
	s := New(config.ServerConfig{RequestTimeout: time.Second}, stubRenderer{
		render: func(ctx context.Context, w io.Writer) error {
			_, _ = io.WriteString(w, "<urlset>")
			return errors.New("database is down")
		},
	})

	resp, body := get(t, s, "/sitemap.xml")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "<error><code>500</code><message>internal server error</message></error>")
	assert.NotContains(t, body, "database is down")
	assert.NotContains(t, body, "<urlset>")
	assert.Empty(t, resp.Header.Get("Cache-Control"))
}

func TestServer_PanicRecovered(t *testing.T) {
	s := New(config.ServerConfig{RequestTimeout: time.Second}, stubRenderer{
		render: func(ctx context.Context, w io.Writer) error {
			panic("sitemap entry without location")
		},
	})

	resp, body := get(t, s, "/sitemap-main.xml")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "<code>500</code>")
}

func TestServer_RequestTimeout(t *testing.T) {
	s := New(config.ServerConfig{RequestTimeout: 50 * time.Millisecond}, stubRenderer{
		render: func(ctx context.Context, w io.Writer) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	resp, _ := get(t, s, "/sitemap-categories.xml")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestErrorBody_Escapes(t *testing.T) {
	assert.Equal(t,
		`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+`<error><code>400</code><message>a &lt;b&gt; &amp; c</message></error>`+"\n",
		string(errorBody(400, "a <b> & c")))
}
