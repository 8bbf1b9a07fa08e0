package models

import "time"

// Source is an ingested file recorded in the sources registry. It lets re-ingestion
// skip files whose modification time and size are unchanged.
type Source struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	ModTime    int64     `json:"mod_time"`
	Size       int64     `json:"size"`
	Chunks     int       `json:"chunks"`
	IngestedAt time.Time `json:"ingested_at"`
}
