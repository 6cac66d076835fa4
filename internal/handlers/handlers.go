package handlers

import (
	"time"

	"video-fetcher/internal/database"
	"video-fetcher/internal/fetcher"
	"video-fetcher/internal/startup"
	"video-fetcher/internal/streaming"
)

// Handlers bundles the HTTP handlers with their dependencies.
type Handlers struct {
	db           *database.Database
	fetcher      *fetcher.Fetcher
	config       *startup.Config
	startTime    time.Time
	streamConfig streaming.Config
}

// New creates the handler set.
func New(db *database.Database, f *fetcher.Fetcher, config *startup.Config) *Handlers {
	return &Handlers{
		db:           db,
		fetcher:      f,
		config:       config,
		startTime:    time.Now(),
		streamConfig: streaming.DefaultConfig(),
	}
}
