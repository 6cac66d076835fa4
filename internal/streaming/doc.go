// Package streaming provides timeout-protected writing of large responses,
// guarding against clients that stall or disconnect mid-download.
package streaming
