// Package fetcher runs independent location lookups on a fixed-size worker
// pool. Each lookup performs its own retry loop, so attempts of one lookup
// stay sequential while separate lookups overlap.
package fetcher
