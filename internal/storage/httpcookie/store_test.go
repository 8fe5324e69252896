package httpcookie

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/percent-page-viewed/internal/clock/system"
	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

func TestStoreReadsRequestCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/pages/next", nil)
	req.AddCookie(&http.Cookie{Name: tracker.DefaultStorageKey, Value: "75%7C%7C%7Chttps:%2F%2Fexample.com%2Fa"})

	store := New(nil, req)
	records := tracker.NewRecordStore(store, tracker.DefaultStorageKey, system.New())
	p, err := records.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, tracker.Progress{ScrollPercent: 75, DocumentLocation: "https://example.com/a"}, p)
}

func TestStoreWritesSetCookie(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/pages/first", nil)
	rec := httptest.NewRecorder()
	store := New(rec, req)
	records := tracker.NewRecordStore(store, tracker.DefaultStorageKey, system.New())

	written, err := records.Write(context.Background(), 50, "https://example.com/first page", false)
	require.NoError(t, err)
	require.True(t, written)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	require.Equal(t, tracker.DefaultStorageKey, c.Name)
	require.Equal(t, "/", c.Path)
	require.Equal(t, "50%7C%7C%7Chttps:%2F%2Fexample.com%2Ffirst%20page", c.Value)
	require.WithinDuration(t, time.Now().Add(time.Hour), c.Expires, time.Minute)

	p, err := records.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 50, p.ScrollPercent, "writes are visible to later reads")
}

func TestStoreReadOnly(t *testing.T) {
	t.Parallel()

	store := New(nil, httptest.NewRequest(http.MethodGet, "/", nil))
	err := store.Set(context.Background(), "k", "v", tracker.SetOptions{})
	require.True(t, errors.Is(err, http.ErrNotSupported))

	_, ok, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreExpiredWriteHidesValue(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "k", Value: "old"})
	store := New(httptest.NewRecorder(), req)
	require.NoError(t, store.Set(context.Background(), "k", "", tracker.SetOptions{Expires: time.Now().Add(-time.Hour)}))

	_, ok, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)
}
