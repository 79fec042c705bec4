// Package errors classifies failed API calls.
//
// The transport reports a failure as one of two types:
//   - *NetworkError when no response was received
//   - *HTTPError when the server answered with a non-2xx status
//
// Classify turns either into an ErrorInfo with a user-facing message and a
// CanRetry flag. Any other error is treated as a network error.
//
//	| Failure            | Flags                     | CanRetry |
//	|--------------------|---------------------------|----------|
//	| no response        | IsNetworkError            | yes      |
//	| 5xx                | IsServerError             | yes      |
//	| 401                | IsClientError, IsAuthError| no       |
//	| 429                | IsClientError             | yes      |
//	| other 4xx          | IsClientError             | no       |
//	| anything else      | none                      | no       |
//
// Classify performs no I/O and never panics, including for a nil error.
package errors
