// internal/database/queries.sql.go
// source: queries.sql

package database

import (
	"context"
	"time"
)

const createPackage = `-- name: CreatePackage :one
INSERT INTO packages (name)
VALUES ($1)
RETURNING id, name, github_description, github_stars, github_forks, github_issues, github_last_commit, github_last_update
`

func (q *Queries) CreatePackage(ctx context.Context, name string) (Package, error) {
	row := q.db.QueryRow(ctx, createPackage, name)
	var i Package
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.GithubDescription,
		&i.GithubStars,
		&i.GithubForks,
		&i.GithubIssues,
		&i.GithubLastCommit,
		&i.GithubLastUpdate,
	)
	return i, err
}

const createRelease = `-- name: CreateRelease :one
INSERT INTO releases (package_id, version, repository_url, release_time)
VALUES ($1, $2, $3, $4)
RETURNING id, package_id, version, repository_url, release_time
`

type CreateReleaseParams struct {
	PackageID     int64
	Version       string
	RepositoryUrl string
	ReleaseTime   time.Time
}

func (q *Queries) CreateRelease(ctx context.Context, arg CreateReleaseParams) (Release, error) {
	row := q.db.QueryRow(ctx, createRelease,
		arg.PackageID,
		arg.Version,
		arg.RepositoryUrl,
		arg.ReleaseTime,
	)
	var i Release
	err := row.Scan(
		&i.ID,
		&i.PackageID,
		&i.Version,
		&i.RepositoryUrl,
		&i.ReleaseTime,
	)
	return i, err
}

const getPackageByName = `-- name: GetPackageByName :one
SELECT id, name, github_description, github_stars, github_forks, github_issues, github_last_commit, github_last_update
FROM packages
WHERE name = $1
`

func (q *Queries) GetPackageByName(ctx context.Context, name string) (Package, error) {
	row := q.db.QueryRow(ctx, getPackageByName, name)
	var i Package
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.GithubDescription,
		&i.GithubStars,
		&i.GithubForks,
		&i.GithubIssues,
		&i.GithubLastCommit,
		&i.GithubLastUpdate,
	)
	return i, err
}

const listSyncCandidates = `-- name: ListSyncCandidates :many
SELECT DISTINCT ON (packages.name)
       packages.name,
       packages.id,
       releases.repository_url
FROM packages
INNER JOIN releases ON releases.package_id = packages.id
WHERE releases.repository_url ~* '^https?://github\.com/'
  AND (packages.github_last_update IS NULL OR packages.github_last_update < $1)
ORDER BY packages.name, releases.release_time DESC, releases.id DESC
`

type ListSyncCandidatesRow struct {
	Name          string
	ID            int64
	RepositoryUrl string
}

func (q *Queries) ListSyncCandidates(ctx context.Context, cutoff time.Time) ([]ListSyncCandidatesRow, error) {
	rows, err := q.db.Query(ctx, listSyncCandidates, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListSyncCandidatesRow
	for rows.Next() {
		var i ListSyncCandidatesRow
		if err := rows.Scan(&i.Name, &i.ID, &i.RepositoryUrl); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const touchPackageGithubSync = `-- name: TouchPackageGithubSync :exec
UPDATE packages
SET github_last_update = NOW()
WHERE id = $1
`

func (q *Queries) TouchPackageGithubSync(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, touchPackageGithubSync, id)
	return err
}

const updatePackageGithubMetadata = `-- name: UpdatePackageGithubMetadata :execrows
UPDATE packages
SET github_description = $1,
    github_stars = $2,
    github_forks = $3,
    github_issues = $4,
    github_last_commit = $5,
    github_last_update = NOW()
WHERE id = $6
`

type UpdatePackageGithubMetadataParams struct {
	GithubDescription string
	GithubStars       int64
	GithubForks       int64
	GithubIssues      int64
	GithubLastCommit  time.Time
	ID                int64
}

func (q *Queries) UpdatePackageGithubMetadata(ctx context.Context, arg UpdatePackageGithubMetadataParams) (int64, error) {
	result, err := q.db.Exec(ctx, updatePackageGithubMetadata,
		arg.GithubDescription,
		arg.GithubStars,
		arg.GithubForks,
		arg.GithubIssues,
		arg.GithubLastCommit,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
