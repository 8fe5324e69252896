package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/percent-page-viewed/internal/clock/manual"
)

func TestThrottleLeadingAndTrailing(t *testing.T) {
	t.Parallel()

	clk := manual.New(testStart)
	var runs []time.Duration
	th := NewThrottle(clk, ThrottleWindow, func() { runs = append(runs, clk.Now().Sub(testStart)) })

	th.Call()
	require.Equal(t, []time.Duration{0}, runs)

	clk.Advance(10 * time.Millisecond)
	th.Call()
	clk.Advance(40 * time.Millisecond)
	th.Call()
	require.Len(t, runs, 1, "calls inside the window must wait for the trailing run")

	clk.Advance(50 * time.Millisecond)
	require.Equal(t, []time.Duration{0, 100 * time.Millisecond}, runs)

	clk.Advance(time.Second)
	require.Len(t, runs, 2, "trailing run fires once")
}

func TestThrottleSingleCallHasNoTrailingRun(t *testing.T) {
	t.Parallel()

	clk := manual.New(testStart)
	count := 0
	th := NewThrottle(clk, ThrottleWindow, func() { count++ })
	th.Call()
	clk.Advance(time.Second)
	require.Equal(t, 1, count)
	require.Zero(t, clk.Pending())

	th.Call()
	require.Equal(t, 2, count, "a call after a quiet window runs immediately")
}

func TestThrottleStopDropsTrailingRun(t *testing.T) {
	t.Parallel()

	clk := manual.New(testStart)
	count := 0
	th := NewThrottle(clk, ThrottleWindow, func() { count++ })
	th.Call()
	th.Call()
	th.Stop()
	clk.Advance(time.Second)
	th.Call()
	require.Equal(t, 1, count)
}
