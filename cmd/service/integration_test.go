//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github-metadata-updater/internal/database"
	"github-metadata-updater/internal/database/migrations"
	custom_errors "github-metadata-updater/internal/errors"
	"github-metadata-updater/internal/github"
	"github-metadata-updater/internal/syncer"
)

func setupTestDatabase(ctx context.Context, t *testing.T) (*pgxpool.Pool, string) {
	// Start a postgres container
	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(context.Background()))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, migrations.MigrateUp(connStr))
	// A second run is a no-op.
	require.NoError(t, migrations.MigrateUp(connStr))

	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(dbpool.Close)

	return dbpool, connStr
}

func seedPackage(ctx context.Context, t *testing.T, q *database.Queries, name string, releases map[string]string, at time.Time) database.Package {
	pkg, err := q.CreatePackage(ctx, name)
	require.NoError(t, err)

	i := 0
	for version, url := range releases {
		_, err := q.CreateRelease(ctx, database.CreateReleaseParams{
			PackageID:     pkg.ID,
			Version:       version,
			RepositoryUrl: url,
			ReleaseTime:   at.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		i++
	}
	return pkg
}

func TestSyncer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool, connStr := setupTestDatabase(ctx, t)
	q := database.New(dbpool)

	version, dirty, err := migrations.Version(connStr)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedPackage(ctx, t, q, "cratesfyi", map[string]string{"0.1.0": "https://github.com/onur/cratesfyi"}, base)
	seedPackage(ctx, t, q, "docopt", map[string]string{"0.8.0": "https://github.com/docopt/docopt.rs.git"}, base)
	seedPackage(ctx, t, q, "elsewhere", map[string]string{"1.0.0": "https://gitlab.com/foo/bar"}, base)
	seedPackage(ctx, t, q, "missing", map[string]string{"1.0.0": "https://github.com/someone/missing"}, base)

	// The newest qualifying release decides the repository.
	moved, err := q.CreatePackage(ctx, "moved")
	require.NoError(t, err)
	for _, r := range []database.CreateReleaseParams{
		{PackageID: moved.ID, Version: "1.0.0", RepositoryUrl: "https://github.com/old/moved", ReleaseTime: base},
		{PackageID: moved.ID, Version: "2.0.0", RepositoryUrl: "https://github.com/new/moved", ReleaseTime: base.Add(48 * time.Hour)},
		{PackageID: moved.ID, Version: "2.1.0", RepositoryUrl: "https://example.com/moved", ReleaseTime: base.Add(72 * time.Hour)},
	} {
		_, err := q.CreateRelease(ctx, r)
		require.NoError(t, err)
	}

	// Releases published at the same instant resolve to the one inserted last.
	tied, err := q.CreatePackage(ctx, "tied")
	require.NoError(t, err)
	for _, r := range []database.CreateReleaseParams{
		{PackageID: tied.ID, Version: "1.0.0", RepositoryUrl: "https://github.com/first/tied", ReleaseTime: base},
		{PackageID: tied.ID, Version: "1.0.1", RepositoryUrl: "https://github.com/second/tied", ReleaseTime: base},
	} {
		_, err := q.CreateRelease(ctx, r)
		require.NoError(t, err)
	}

	// Scheme and host match regardless of case, and plain http qualifies.
	seedPackage(ctx, t, q, "shouty", map[string]string{"1.0.0": "HTTPS://GitHub.com/Loud/Shouty"}, base)
	seedPackage(ctx, t, q, "plain", map[string]string{"1.0.0": "http://github.com/plain/http"}, base)

	selected, err := q.ListSyncCandidates(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	urls := make(map[string]string)
	var names []string
	for _, c := range selected {
		urls[c.Name] = c.RepositoryUrl
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"cratesfyi", "docopt", "missing", "moved", "plain", "shouty", "tied"}, names)
	assert.Equal(t, map[string]string{
		"cratesfyi": "https://github.com/onur/cratesfyi",
		"docopt":    "https://github.com/docopt/docopt.rs.git",
		"missing":   "https://github.com/someone/missing",
		"moved":     "https://github.com/new/moved",
		"plain":     "http://github.com/plain/http",
		"shouty":    "HTTPS://GitHub.com/Loud/Shouty",
		"tied":      "https://github.com/second/tied",
	}, urls)

	var requestCount int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/repos/onur/cratesfyi":
			fmt.Fprint(w, `{"description":"docs.rs","stargazers_count":120,"forks_count":14,"open_issues":3,"pushed_at":"2023-11-02T08:15:00Z"}`)
		case "/repos/docopt/docopt.rs":
			fmt.Fprint(w, `{"description":"x","stargazers_count":5}`)
		case "/repos/second/tied", "/repos/Loud/Shouty", "/repos/plain/http":
			fmt.Fprintf(w, `{"description":%q}`, r.URL.Path)
		case "/repos/new/moved":
			fmt.Fprint(w, `{"description":"moved","stargazers_count":1,"forks_count":1,"open_issues":1,"pushed_at":"2024-02-01T00:00:00Z"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
		}
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ghClient, err := github.NewClient(github.ClientConfig{UserAgent: "github-metadata-updater/test", BaseURL: server.URL}, logger)
	require.NoError(t, err)

	appSyncer, err := syncer.NewSyncer(q, ghClient, syncer.FixedDelay(10*time.Millisecond), logger, syncer.Options{
		SyncInterval:       time.Hour,
		FreshnessThreshold: 24 * time.Hour,
	})
	require.NoError(t, err)

	// --- ACT ---
	report, err := appSyncer.RunPass(ctx)
	require.NoError(t, err)

	// --- ASSERT ---
	kinds := make(map[string]custom_errors.Kind)
	for _, o := range report.Outcomes {
		kinds[o.PackageName] = o.Kind
	}
	assert.Equal(t, map[string]custom_errors.Kind{
		"cratesfyi": custom_errors.KindNone,
		"docopt":    custom_errors.KindNone,
		"missing":   custom_errors.KindRemoteUnavailable,
		"moved":     custom_errors.KindNone,
		"plain":     custom_errors.KindNone,
		"shouty":    custom_errors.KindNone,
		"tied":      custom_errors.KindNone,
	}, kinds, "gitlab-only packages are never selected")
	assert.Equal(t, int32(7), atomic.LoadInt32(&requestCount))
	assert.GreaterOrEqual(t, report.Duration(), 70*time.Millisecond)

	cratesfyi, err := q.GetPackageByName(ctx, "cratesfyi")
	require.NoError(t, err)
	assert.Equal(t, "docs.rs", cratesfyi.GithubDescription.String)
	assert.Equal(t, int64(120), cratesfyi.GithubStars.Int64)
	assert.Equal(t, int64(14), cratesfyi.GithubForks.Int64)
	assert.Equal(t, int64(3), cratesfyi.GithubIssues.Int64)
	assert.True(t, cratesfyi.GithubLastCommit.Time.Equal(time.Date(2023, 11, 2, 8, 15, 0, 0, time.UTC)))
	assert.True(t, cratesfyi.GithubLastUpdate.Valid)

	docopt, err := q.GetPackageByName(ctx, "docopt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), docopt.GithubStars.Int64)
	assert.Equal(t, int64(0), docopt.GithubForks.Int64)
	assert.True(t, docopt.GithubForks.Valid)

	missing, err := q.GetPackageByName(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, missing.GithubLastUpdate.Valid, "failed fetches leave the snapshot untouched")

	movedRow, err := q.GetPackageByName(ctx, "moved")
	require.NoError(t, err)
	assert.Equal(t, "moved", movedRow.GithubDescription.String)

	for name, path := range map[string]string{
		"tied":   "/repos/second/tied",
		"shouty": "/repos/Loud/Shouty",
		"plain":  "/repos/plain/http",
	} {
		row, err := q.GetPackageByName(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, path, row.GithubDescription.String, name)
	}

	// Freshly synced packages are not candidates again; the failed one still is.
	candidates, err := q.ListSyncCandidates(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "missing", candidates[0].Name)

	// Applying the same metadata twice leaves the same stored fields.
	params := database.UpdatePackageGithubMetadataParams{
		GithubDescription: "docs.rs",
		GithubStars:       120,
		GithubForks:       14,
		GithubIssues:      3,
		GithubLastCommit:  cratesfyi.GithubLastCommit.Time,
		ID:                cratesfyi.ID,
	}
	for i := 0; i < 2; i++ {
		n, err := q.UpdatePackageGithubMetadata(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}
	again, err := q.GetPackageByName(ctx, "cratesfyi")
	require.NoError(t, err)
	assert.Equal(t, cratesfyi.GithubDescription, again.GithubDescription)
	assert.Equal(t, cratesfyi.GithubStars, again.GithubStars)
	assert.True(t, cratesfyi.GithubLastCommit.Time.Equal(again.GithubLastCommit.Time))

	n, err := q.UpdatePackageGithubMetadata(ctx, database.UpdatePackageGithubMetadataParams{ID: 999999})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSyncer_Integration_MarkFailedAttempts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool, _ := setupTestDatabase(ctx, t)
	q := database.New(dbpool)

	seedPackage(ctx, t, q, "dead", map[string]string{"1.0.0": "https://github.com/someone/dead"}, time.Now())

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ghClient, err := github.NewClient(github.ClientConfig{BaseURL: server.URL}, logger)
	require.NoError(t, err)

	appSyncer, err := syncer.NewSyncer(q, ghClient, syncer.FixedDelay(0), logger, syncer.Options{
		SyncInterval:       time.Hour,
		FreshnessThreshold: 24 * time.Hour,
		MarkFailedAttempts: true,
	})
	require.NoError(t, err)

	report, err := appSyncer.RunPass(ctx)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, custom_errors.KindRemoteUnavailable, report.Outcomes[0].Kind)

	dead, err := q.GetPackageByName(ctx, "dead")
	require.NoError(t, err)
	assert.True(t, dead.GithubLastUpdate.Valid)
	assert.False(t, dead.GithubLastCommit.Valid)

	report, err = appSyncer.RunPass(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Outcomes, "a stamped failure waits for the next threshold")
}
