// Package loki provides an HTTP and websocket client for the Loki log API.
//
// # Overview
//
// The client covers the four endpoints lokctl needs:
//
//   - GET /loki/api/v1/query: instant query bounded by the configured limit
//   - GET /loki/api/v1/query_range: range query around a selected entry
//   - POST /loki/api/v1/push: append a single entry under job and level labels
//   - GET /loki/api/v1/tail (websocket): live stream used by follow mode
//
// Query responses are label-grouped streams of [nanosecond-string, line]
// pairs. The client flattens them into a single []LogEntry in response order;
// entries are not re-sorted by time.
//
// # Timestamps
//
// LogEntry.Timestamp is an ISO-8601 string with millisecond precision in UTC,
// e.g. "2024-05-01T12:00:00.123Z". Converting back with TimestampNs yields
// milliseconds × 1e6, so any sub-millisecond part of the original record is
// lost. That floor is accepted.
//
// All window arithmetic is int64. Nanosecond epochs are far above 2^53, so a
// float64 would silently move window boundaries by hundreds of nanoseconds.
//
// # Errors
//
//   - *BackendError: transport failure (Status 0) or non-2xx response
//   - *ParseError: one malformed result row; reported in Result.Skipped and
//     never fails the surrounding call
//
// # Thread Safety
//
// Client holds only configuration and is safe for concurrent use.
package loki
