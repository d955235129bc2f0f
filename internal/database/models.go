// internal/database/models.go
package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Package struct {
	ID                int64
	Name              string
	GithubDescription pgtype.Text
	GithubStars       pgtype.Int8
	GithubForks       pgtype.Int8
	GithubIssues      pgtype.Int8
	GithubLastCommit  pgtype.Timestamptz
	GithubLastUpdate  pgtype.Timestamptz
}

type Release struct {
	ID            int64
	PackageID     int64
	Version       string
	RepositoryUrl string
	ReleaseTime   pgtype.Timestamptz
}
