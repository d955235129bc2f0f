// internal/database/querier.go
package database

import (
	"context"
	"time"
)

type Querier interface {
	CreatePackage(ctx context.Context, name string) (Package, error)
	CreateRelease(ctx context.Context, arg CreateReleaseParams) (Release, error)
	GetPackageByName(ctx context.Context, name string) (Package, error)
	// ListSyncCandidates returns one row per package whose newest GitHub release URL
	// needs a metadata refresh.
	ListSyncCandidates(ctx context.Context, cutoff time.Time) ([]ListSyncCandidatesRow, error)
	TouchPackageGithubSync(ctx context.Context, id int64) error
	UpdatePackageGithubMetadata(ctx context.Context, arg UpdatePackageGithubMetadataParams) (int64, error)
}

var _ Querier = (*Queries)(nil)
