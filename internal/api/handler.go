// internal/api/handler.go
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"

	"github-metadata-updater/internal/database"
	custom_errors "github-metadata-updater/internal/errors"
	"github-metadata-updater/internal/model"
	"github-metadata-updater/internal/syncer"
)

// ReportSource exposes the result of the latest sync pass.
type ReportSource interface {
	LastReport() *syncer.Report
}

// Handler is the container for API dependencies.
type Handler struct {
	db      database.Querier
	reports ReportSource
	logger  *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(db database.Querier, reports ReportSource, logger *slog.Logger) http.Handler {
	h := &Handler{
		db:      db,
		reports: reports,
		logger:  logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/packages/{name}/github", h.getPackageMetadata)
		r.Get("/sync/last", h.getLastPass)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getPackageMetadata returns the stored GitHub snapshot of a package.
// GET /v1/packages/{name}/github
func (h *Handler) getPackageMetadata(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	row, err := h.db.GetPackageByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Package not found")
			return
		}
		h.logger.Error("Failed to get package", "package", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	pkg := toModelPackage(row)
	if pkg.Metadata == nil {
		respondWithError(w, http.StatusNotFound, "Package has not been synced with GitHub yet")
		return
	}
	respondWithJSON(w, http.StatusOK, pkg)
}

type passSummary struct {
	*syncer.Report
	Duration string                     `json:"duration"`
	Counts   map[custom_errors.Kind]int `json:"counts"`
}

// getLastPass returns the report of the most recent sync pass.
// GET /v1/sync/last
func (h *Handler) getLastPass(w http.ResponseWriter, r *http.Request) {
	report := h.reports.LastReport()
	if report == nil {
		respondWithError(w, http.StatusNotFound, "No sync pass has finished yet")
		return
	}
	respondWithJSON(w, http.StatusOK, passSummary{
		Report:   report,
		Duration: report.Duration().String(),
		Counts:   report.Counts(),
	})
}

// toModelPackage translates a database row into our internal model. The
// snapshot is only present once a fetch has been stored.
func toModelPackage(p database.Package) model.Package {
	pkg := model.Package{ID: p.ID, Name: p.Name}
	if p.GithubLastUpdate.Valid {
		t := p.GithubLastUpdate.Time
		pkg.LastSyncedAt = &t
	}
	if p.GithubLastCommit.Valid {
		pkg.Metadata = &model.RepoMetadata{
			Description: p.GithubDescription.String,
			Stars:       p.GithubStars.Int64,
			Forks:       p.GithubForks.Int64,
			Issues:      p.GithubIssues.Int64,
			LastCommit:  p.GithubLastCommit.Time,
		}
	}
	return pkg
}
