package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/percent-page-viewed/internal/clock/manual"
	"github.com/JakeFAU/percent-page-viewed/internal/tracker"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestStoreGetSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := manual.New(start)
	store := NewStore(clk, "")

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v", tracker.SetOptions{Path: "/", Expires: start.Add(time.Hour)}))
	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", value)
}

func TestStoreExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := manual.New(start)
	store := NewStore(clk, "/")
	require.NoError(t, store.Set(ctx, "k", "v", tracker.SetOptions{Path: "/", Expires: start.Add(time.Hour)}))

	clk.Advance(59 * time.Minute)
	_, ok, _ := store.Get(ctx, "k")
	require.True(t, ok)

	clk.Advance(time.Minute)
	_, ok, _ = store.Get(ctx, "k")
	require.False(t, ok, "entry expires exactly at its deadline")

	require.Equal(t, 1, store.Len())
	store.Purge()
	require.Zero(t, store.Len())
}

func TestStorePastExpiryDeletes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStore(manual.New(start), "/")
	require.NoError(t, store.Set(ctx, "k", "v", tracker.SetOptions{Path: "/"}))
	require.NoError(t, store.Set(ctx, "k", "", tracker.SetOptions{Path: "/", Expires: start.Add(-time.Second)}))
	_, ok, _ := store.Get(ctx, "k")
	require.False(t, ok)
	require.Zero(t, store.Len())
}

func TestStorePathScoping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := manual.New(start)
	store := NewStore(clk, "/blog/post")
	require.NoError(t, store.Set(ctx, "k", "root", tracker.SetOptions{Path: "/"}))
	require.NoError(t, store.Set(ctx, "k", "blog", tracker.SetOptions{Path: "/blog"}))
	require.NoError(t, store.Set(ctx, "k", "other", tracker.SetOptions{Path: "/shop"}))
	require.NoError(t, store.Set(ctx, "k", "prefix-only", tracker.SetOptions{Path: "/blog/po"}))

	value, ok, _ := store.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "blog", value, "most specific matching path wins")
}

func TestStoreBacksRecordStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := manual.New(start)
	records := tracker.NewRecordStore(NewStore(clk, "/article"), tracker.DefaultStorageKey, clk)

	_, err := records.Write(ctx, 50, "https://example.com/article", false)
	require.NoError(t, err)
	p, err := records.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, tracker.Progress{ScrollPercent: 50, DocumentLocation: "https://example.com/article"}, p)

	clk.Advance(tracker.RecordTTL)
	p, err = records.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, tracker.Progress{}, p, "record expires after one hour")
}
