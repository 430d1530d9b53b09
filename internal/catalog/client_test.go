package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchlist-service/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "secret", Timeout: timeout}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "http://localhost"}, slog.Default())
	assert.Error(t, err)
}

func TestResolveByExternalID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		assert.Equal(t, "tt1515091", r.URL.Query().Get("i"))
		io.WriteString(w, `{"Title":"Sherlock Holmes: A Game of Shadows","Released":"16 Dec 2011","Runtime":"129 min","imdbRating":"7.5","imdbID":"tt1515091","Type":"movie","Response":"True"}`)
	}, time.Second)

	rec, err := c.ResolveByExternalID(context.Background(), nil, "tt1515091")
	require.NoError(t, err)
	assert.Equal(t, "Sherlock Holmes: A Game of Shadows", rec.Title)
	assert.Equal(t, "129 min", rec.Runtime)
	assert.Equal(t, "movie", rec.Type)
}

func TestResolveByExternalID_InBandFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"Response":"False","Error":"Incorrect IMDb ID."}`)
	}, time.Second)

	rec, err := c.ResolveByExternalID(context.Background(), nil, "nope")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_HTTPErrorIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, time.Second)

	_, err := c.ResolveEpisode(context.Background(), nil, "tt0000001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_TimeoutIsNotFound(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := c.ResolveEpisode(context.Background(), nil, "tt0000001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>oops</html>`)
	}, time.Second)

	_, err := c.ResolveByExternalID(context.Background(), nil, "tt1")
	assert.ErrorIs(t, err, domain.ErrUpstreamMalformed)
}

func TestResolveSeason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tt0944947", r.URL.Query().Get("i"))
		assert.Equal(t, "2", r.URL.Query().Get("Season"))
		io.WriteString(w, `{"Title":"Game of Thrones","Season":"2","totalSeasons":"8","Episodes":[{"Title":"The North Remembers","Episode":"1","imdbID":"tt1971833"}],"Response":"True"}`)
	}, time.Second)

	sess := c.NewSession()
	defer sess.Close()

	rec, err := c.ResolveSeason(context.Background(), sess, "tt0944947", 2)
	require.NoError(t, err)
	assert.Equal(t, "2", rec.Season)
	require.Len(t, rec.Episodes, 1)
	assert.Equal(t, "tt1971833", rec.Episodes[0].IMDbID)
}

func TestSearch_PassesThroughUnchanged(t *testing.T) {
	payload := `{"Search":[{"Title":"Dune","Year":"2021","imdbID":"tt1160419","Type":"movie"}],"totalResults":"1","Response":"True"}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "dune", q.Get("s"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "2021", q.Get("y"))
		io.WriteString(w, payload)
	}, time.Second)

	raw, err := c.Search(context.Background(), nil, "dune", 2, "2021")
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))
}

func TestSearch_InBandFailureNotTranslated(t *testing.T) {
	payload := `{"Response":"False","Error":"Movie not found!"}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasYear := r.URL.Query()["y"]
		assert.False(t, hasYear)
		io.WriteString(w, payload)
	}, time.Second)

	raw, err := c.Search(context.Background(), nil, "zzzz", 1, "")
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))
}

func TestSearch_ErrorStatusBodyRelayed(t *testing.T) {
	payload := `{"Response":"False","Error":"Invalid API key!"}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, payload)
	}, time.Second)

	raw, err := c.Search(context.Background(), nil, "dune", 1, "")
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))
}

func TestSearch_NonJSONErrorStatusIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}, time.Second)

	_, err := c.Search(context.Background(), nil, "dune", 1, "")
	assert.ErrorIs(t, err, domain.ErrUpstreamMalformed)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_ErrorStatusWithJSONBodyIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"Response":"False","Error":"Invalid API key!"}`)
	}, time.Second)

	_, err := c.ResolveByExternalID(context.Background(), nil, "tt1515091")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRedact(t *testing.T) {
	assert.NotContains(t, redact(url.Values{"apikey": {"secret"}, "i": {"tt1"}}), "secret")
}

func TestResolve_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ResolveByExternalID(context.Background(), nil, "tt1")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}
