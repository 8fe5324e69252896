package manual

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdvanceFiresInDeadlineOrder(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := New(start)
	var order []string
	clk.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
	clk.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
	clk.AfterFunc(10*time.Millisecond, func() { order = append(order, "b") })

	clk.Advance(20 * time.Millisecond)
	require.Equal(t, []string{"a", "b"}, order)
	require.Equal(t, start.Add(20*time.Millisecond), clk.Now())
	require.Equal(t, 1, clk.Pending())

	clk.Advance(10 * time.Millisecond)
	require.Equal(t, []string{"a", "b", "c"}, order)
	require.Zero(t, clk.Pending())
}

func TestCallbackSeesDeadlineAndCanReschedule(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := New(start)
	var seen []time.Time
	clk.AfterFunc(5*time.Millisecond, func() {
		seen = append(seen, clk.Now())
		clk.AfterFunc(5*time.Millisecond, func() { seen = append(seen, clk.Now()) })
	})

	clk.Advance(time.Second)
	require.Equal(t, []time.Time{start.Add(5 * time.Millisecond), start.Add(10 * time.Millisecond)}, seen)
}

func TestStopRemovesTimer(t *testing.T) {
	t.Parallel()

	clk := New(time.Unix(0, 0).UTC())
	timer := clk.AfterFunc(time.Millisecond, func() { t.Fatal("stopped timer fired") })
	require.True(t, timer.Stop())
	require.False(t, timer.Stop())
	clk.Advance(time.Second)
	require.Zero(t, clk.Pending())

	fired := clk.AfterFunc(time.Millisecond, func() {})
	clk.Advance(time.Millisecond)
	require.False(t, fired.Stop())
}
