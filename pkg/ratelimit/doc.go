// Package ratelimit throttles requests to the Butterfliy API on the client
// side so that bursts from the fetch pool do not trip the server's 429
// responses.
//
// TokenBucket wraps golang.org/x/time/rate and is what New returns for an
// enabled configuration. SlidingWindow enforces a hard cap per window.
// Both implement Limiter, whose Wait honours context cancellation.
package ratelimit
