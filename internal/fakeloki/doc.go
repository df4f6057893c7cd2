// Package fakeloki is an in-memory stand-in for the parts of the Loki HTTP
// API that lokctl uses: instant and range queries, push, and the websocket
// tail. It backs the demo command and end-to-end tests.
//
// Queries understand a LogQL subset: a stream selector with =, !=, =~ and
// !~ matchers followed by any number of |=, !=, |~ and !~ line filters.
// Regex label matchers are fully anchored, as in Loki.
package fakeloki
