// Package database provides SQLite storage for the fetch history.
//
// Each fetch request becomes one record that moves through
// pending -> completed/failed, carrying the probed media metadata and the
// stored file paths. The database uses WAL mode for concurrent reads and
// includes automatic schema initialization.
package database
