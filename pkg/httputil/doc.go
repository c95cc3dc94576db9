// Package httputil provides the HTTP client used to fetch tier data from a
// remote map backend.
//
// # Overview
//
//   - [Client]: GET requests with default headers, response caching and
//     status classification
//   - [Retry]: automatic retry with exponential backoff
//
// # Caching
//
// [Client.Cached] consults a [cache.Cache] before calling fetch and stores
// successful results with the client's TTL. Keys are namespaced through
// the cache package's Keyer so different backends never collide.
//
// # Retry
//
// Failures are classified when the response arrives:
//
//   - Network errors, 5xx and 429 responses are wrapped in
//     [RetryableError] and retried
//   - 404 becomes [ErrNotFound] and is returned at once
//   - Other statuses are returned at once as [ErrNetwork]
//
// [RetryWithBackoff] runs 3 attempts starting with a one second delay
// that doubles after each failure.
package httputil
