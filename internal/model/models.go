// internal/model/models.go
package model

import "time"

// Package is a tracked software package together with its GitHub snapshot.
type Package struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// Metadata is nil until the first successful sync.
	Metadata     *RepoMetadata `json:"github,omitempty"`
	LastSyncedAt *time.Time    `json:"last_synced_at,omitempty"`
}

// RepoMetadata is the subset of a GitHub repository we store on a package.
type RepoMetadata struct {
	Description string    `json:"description"`
	Stars       int64     `json:"stars"`
	Forks       int64     `json:"forks"`
	Issues      int64     `json:"issues"`
	LastCommit  time.Time `json:"last_commit"`
}
