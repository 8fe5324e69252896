// Package tracker measures how far a visitor has scrolled down a page and
// keeps the high-water mark in a small persisted record so it survives a
// page transition.
//
// The pieces cooperate as follows:
//   - Geometry: ScrollPercent turns a host Layout into an integer percentage.
//   - Quantize: rounds that percentage down to the configured interval.
//   - RecordStore: reads and writes the "<percent>|||<location>" record under
//     a single key with a one hour expiry, never overwriting a higher value
//     unless forced.
//   - Throttle plus the settle delay: coalesce scroll notifications so the
//     record is only written once scrolling has been quiet for TrackDelay.
//
// Tracker ties them together. Hosts (a headless browser, an HTTP request, a
// test fake) are injected through the Host and Storage interfaces.
package tracker
