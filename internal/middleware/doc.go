// Package middleware provides HTTP middleware for the video fetcher:
// W3C-style request logging with log injection protection, and Prometheus
// request metrics with bounded path cardinality.
package middleware
