// Package main hosts the scrolltrack entrypoint.
//
// scrolltrack starts a demo page server, opens a Chrome tab through chromedp,
// and replays a scroll plan across a sequence of pages. A tracker runs on
// each page: it hands the previous page's stored progress to a callback on
// arrival, then follows the tab's real scroll events and stores the
// quantized high-water mark once scrolling settles.
//
// Storage backends:
//   - browser (default): the tab's own cookie jar, exactly as a visitor's
//     browser would hold the record.
//   - memory: an in-process jar with the same path and expiry rules.
//   - postgres: a key/value table with an expiry column, for inspecting
//     records outside the browser.
//
// Configuration comes from an optional YAML file (-config) overlaid by
// SCROLLTRACK_* environment variables (a .env file in the working directory
// is loaded first), e.g. SCROLLTRACK_TRACKER_PERCENT_INTERVAL=10
// or SCROLLTRACK_STORAGE_BACKEND=memory. With -serve the demo server keeps
// running after the plan finishes, exposing /pages/{slug}, /v1/progress and
// /metrics until SIGINT or SIGTERM.
package main
