package demo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

func newTestServer() *Server {
	return NewServer(Options{Metrics: true}, zap.NewNop())
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_PageRendersRequestedHeight(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pages/article?height=6000", nil)
	newTestServer().Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "<title>article</title>")
	require.Contains(t, rec.Body.String(), "height:6000px")
}

func TestServer_PageDefaultHeight(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewServer(Options{DefaultHeight: 2500}, nil).Handler().
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/home", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "height:2500px")
}

func TestServer_PageRejectsBadHeight(t *testing.T) {
	t.Parallel()

	for _, height := range []string{"abc", "0", "-10", "99999999"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/pages/article?height="+height, nil)
		newTestServer().Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, height)
	}
}

func TestServer_PageEscapesSlug(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pages/%3Cscript%3E", nil)
	newTestServer().Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "<script>")
}

func TestServer_GetProgressFromCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/v1/progress", nil)
	req.AddCookie(&http.Cookie{
		Name:  tracker.DefaultStorageKey,
		Value: tracker.Encode(tracker.Progress{ScrollPercent: 75, DocumentLocation: "https://example.com/a"}),
	})
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Tracked)
	require.Equal(t, 75, body.Progress.ScrollPercent)
	require.Equal(t, "https://example.com/a", body.Progress.DocumentLocation)
}

func TestServer_GetProgressUntracked(t *testing.T) {
	t.Parallel()

	cases := map[string]*http.Cookie{
		"missing":   nil,
		"malformed": {Name: tracker.DefaultStorageKey, Value: "garbage"},
		"cleared":   {Name: tracker.DefaultStorageKey, Value: tracker.Encode(tracker.Progress{})},
	}
	for name, cookie := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/v1/progress", nil)
			if cookie != nil {
				req.AddCookie(cookie)
			}
			rec := httptest.NewRecorder()
			newTestServer().Handler().ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var body ProgressResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.False(t, body.Tracked)
			require.Equal(t, tracker.Progress{}, body.Progress)
		})
	}
}

func TestServer_ClearProgressSetsResetCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodDelete, "/v1/progress", nil)
	req.AddCookie(&http.Cookie{
		Name:  tracker.DefaultStorageKey,
		Value: tracker.Encode(tracker.Progress{ScrollPercent: 50, DocumentLocation: "https://example.com"}),
	})
	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, tracker.DefaultStorageKey, cookies[0].Name)
	require.Equal(t, "/", cookies[0].Path)
	p, ok := tracker.Decode(cookies[0].Value)
	require.True(t, ok)
	require.Equal(t, tracker.Progress{}, p)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "http_requests_total"))
}

func TestServer_MetricsDisabled(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewServer(Options{}, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http://127.0.0.1:8080/pages/article?height=3000",
		PageURL("http://127.0.0.1:8080", "article", 3000))
}
