// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github-metadata-updater/internal/database"
	custom_errors "github-metadata-updater/internal/errors"
	"github-metadata-updater/internal/github"
	"github-metadata-updater/internal/model"
)

// MetadataFetcher retrieves repository metadata for a single repository.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, id github.RepoIdentifier) (*model.RepoMetadata, error)
}

// Options tunes the scheduling of sync passes.
type Options struct {
	// SyncInterval is the time between the start of two scheduled passes.
	SyncInterval time.Duration
	// FreshnessThreshold is how old stored metadata must be before it is refreshed.
	FreshnessThreshold time.Duration
	// MarkFailedAttempts stamps the sync time of packages whose fetch failed so they
	// wait a full threshold before being tried again.
	MarkFailedAttempts bool
}

// Syncer orchestrates the fetching and storing of data.
type Syncer struct {
	db       database.Querier
	fetcher  MetadataFetcher
	throttle Throttle
	logger   *slog.Logger
	opts     Options
	now      func() time.Time

	mu   sync.RWMutex
	last *Report
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(db database.Querier, fetcher MetadataFetcher, throttle Throttle, logger *slog.Logger, opts Options) (*Syncer, error) {
	if opts.SyncInterval <= 0 {
		return nil, errors.New("sync interval must be positive")
	}
	if opts.FreshnessThreshold <= 0 {
		return nil, errors.New("freshness threshold must be positive")
	}

	return &Syncer{
		db:       db,
		fetcher:  fetcher,
		throttle: throttle,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}, nil
}

// Start runs a pass immediately and then once per sync interval until ctx is done.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting syncer", "interval", s.opts.SyncInterval.String(), "threshold", s.opts.FreshnessThreshold.String())
	ticker := time.NewTicker(s.opts.SyncInterval)
	defer ticker.Stop()

	s.runScheduledPass(ctx) // Initial sync

	for {
		select {
		case <-ticker.C:
			s.runScheduledPass(ctx)
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

func (s *Syncer) runScheduledPass(ctx context.Context) {
	if _, err := s.RunPass(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Sync pass failed", "error", err)
	}
}

// LastReport returns the report of the most recently finished pass, or nil.
func (s *Syncer) LastReport() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// RunPass refreshes every package selected at the start of the pass, one at a time.
// Failures of individual packages are logged and recorded in the report; only a
// failure to list the candidates is returned as an error.
func (s *Syncer) RunPass(ctx context.Context) (*Report, error) {
	report := &Report{PassID: uuid.New(), StartedAt: s.now()}
	logger := s.logger.With("pass_id", report.PassID.String())

	candidates, err := s.db.ListSyncCandidates(ctx, report.StartedAt.Add(-s.opts.FreshnessThreshold))
	if err != nil {
		return nil, fmt.Errorf("failed to list sync candidates: %w", err)
	}
	logger.Info("Starting sync pass", "candidates", len(candidates))

	for i, c := range candidates {
		report.Outcomes = append(report.Outcomes, s.syncCandidate(ctx, logger, c))

		// Stay under the GitHub rate limit.
		if err := s.throttle.Wait(ctx); err != nil {
			if remaining := len(candidates) - i - 1; remaining > 0 {
				report.Interrupted = true
				logger.Info("Sync pass interrupted", "reason", err, "processed", len(report.Outcomes), "remaining", remaining)
			}
			break
		}
	}

	report.FinishedAt = s.now()
	logger.Info("Sync pass finished",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"duration", report.Duration().String(),
	)

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	return report, nil
}

// syncCandidate runs the extract, fetch and persist steps for one package and
// turns the result into an Outcome.
func (s *Syncer) syncCandidate(ctx context.Context, logger *slog.Logger, c database.ListSyncCandidatesRow) Outcome {
	logger = logger.With("package", c.Name, "package_id", c.ID)

	outcome := Outcome{
		PackageName:   c.Name,
		PackageID:     c.ID,
		RepositoryURL: c.RepositoryUrl,
	}

	err := s.syncPackage(ctx, logger, c, &outcome)
	outcome.Kind = custom_errors.KindOf(err)
	if err == nil {
		return outcome
	}

	outcome.Err = err
	outcome.Error = err.Error()
	logger.Warn("Failed to update github fields", "kind", outcome.Kind, "error", err)

	if s.shouldMarkAttempt(ctx, err) {
		if err := s.db.TouchPackageGithubSync(ctx, c.ID); err != nil {
			logger.Error("Failed to record sync attempt", "error", err)
		}
	}
	return outcome
}

// shouldMarkAttempt reports whether a failed candidate should have its sync time
// stamped. Only failures that reached GitHub, or never needed to, count as attempts.
func (s *Syncer) shouldMarkAttempt(ctx context.Context, err error) bool {
	if !s.opts.MarkFailedAttempts || ctx.Err() != nil {
		return false
	}
	if custom_errors.KindOf(err) == custom_errors.KindPersist {
		return false
	}
	var remoteErr *custom_errors.RemoteUnavailableError
	if errors.As(err, &remoteErr) && remoteErr.RateLimited {
		return false
	}
	return true
}

func (s *Syncer) syncPackage(ctx context.Context, logger *slog.Logger, c database.ListSyncCandidatesRow, outcome *Outcome) error {
	id, ok := github.ParseRepoURL(c.RepositoryUrl)
	if !ok {
		return &custom_errors.ExtractionError{URL: c.RepositoryUrl}
	}
	outcome.Repo = id.String()

	meta, err := s.fetcher.FetchMetadata(ctx, id)
	if err != nil {
		return err
	}

	if err := s.persistMetadata(ctx, c.ID, meta); err != nil {
		return err
	}
	logger.Debug("Updated github fields", "repo", id.String(), "stars", meta.Stars)
	return nil
}

// persistMetadata writes all fetched fields with a single statement.
func (s *Syncer) persistMetadata(ctx context.Context, packageID int64, meta *model.RepoMetadata) error {
	n, err := s.db.UpdatePackageGithubMetadata(ctx, database.UpdatePackageGithubMetadataParams{
		GithubDescription: meta.Description,
		GithubStars:       meta.Stars,
		GithubForks:       meta.Forks,
		GithubIssues:      meta.Issues,
		GithubLastCommit:  meta.LastCommit,
		ID:                packageID,
	})
	if err != nil {
		return &custom_errors.PersistError{PackageID: packageID, Err: err}
	}
	if n == 0 {
		return &custom_errors.PersistError{PackageID: packageID, Err: pgx.ErrNoRows}
	}
	return nil
}
