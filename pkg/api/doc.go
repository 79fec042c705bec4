// Package api provides a client for the Butterfliy REST API.
//
// This package includes:
//   - A configurable HTTP client with request ids, bearer tokens and rate limiting
//   - Transport errors mapped onto errors.NetworkError and errors.HTTPError
//   - GET requests retried through the retry package
//   - The location endpoints (list, get, search)
//
// Example usage:
//
//	client := api.NewClient(&cfg.API,
//	    api.WithTokenSource(manager),
//	    api.WithLimiter(ratelimit.New(cfg.RateLimit)),
//	)
//
//	locations, err := client.Locations().List(ctx, models.LocationFilter{Country: "Kenya"})
//	if err != nil {
//	    info := errors.Classify(err)
//	    if info.IsAuthError {
//	        // Ask for a token
//	    }
//	    fmt.Println(info.Message)
//	}
//
// POST requests are not retried unless the client is built with
// WithRetryUnsafe(true), since the retry executor re-sends requests blindly.
package api
