// internal/github/client.go
package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	custom_errors "github-metadata-updater/internal/errors"
	"github-metadata-updater/internal/model"
)

const requestTimeout = 30 * time.Second

// ClientConfig carries the settings needed to talk to the GitHub API.
type ClientConfig struct {
	Username  string
	Token     string
	UserAgent string
	// BaseURL overrides https://api.github.com/ when set.
	BaseURL string
}

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewClient creates and configures a new Client instance.
// A username selects HTTP basic auth with the token as password, a token on its
// own is sent as a bearer token, and no credentials at all means anonymous access.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	gh := github.NewClient(newHTTPClient(cfg.Username, cfg.Token))
	if cfg.UserAgent != "" {
		gh.UserAgent = cfg.UserAgent
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url %q: %w", cfg.BaseURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:     gh,
		logger: logger,
		now:    time.Now,
	}, nil
}

func newHTTPClient(username, token string) *http.Client {
	var hc *http.Client
	switch {
	case username != "":
		tp := &github.BasicAuthTransport{Username: username, Password: token}
		hc = tp.Client()
	case token != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), ts)
	default:
		hc = &http.Client{}
	}
	hc.Timeout = requestTimeout
	return hc
}

// FetchMetadata performs a single GET /repos/{owner}/{repo} and translates the
// body into our internal model. It never retries.
func (c *Client) FetchMetadata(ctx context.Context, id RepoIdentifier) (*model.RepoMetadata, error) {
	req, err := c.gh.NewRequest(http.MethodGet, fmt.Sprintf("repos/%s/%s", id.Owner, id.Name), nil)
	if err != nil {
		return nil, &custom_errors.TransportError{Repo: id.String(), Err: err}
	}

	c.logger.Debug("Fetching repository", "repo", id.String())

	// A bytes.Buffer makes go-github hand over the raw body instead of decoding it.
	var body bytes.Buffer
	resp, err := c.gh.Do(ctx, req, &body)
	if resp != nil && resp.Response != nil && resp.StatusCode != http.StatusOK {
		return nil, &custom_errors.RemoteUnavailableError{
			Repo:        id.String(),
			StatusCode:  resp.StatusCode,
			RateLimited: isRateLimited(err),
			Err:         err,
		}
	}
	if err != nil {
		return nil, &custom_errors.TransportError{Repo: id.String(), Err: err}
	}
	if resp != nil {
		c.logger.Debug("Repository fetched", "repo", id.String(), "rate_remaining", resp.Rate.Remaining)
	}

	meta, err := decodeRepoMetadata(body.Bytes(), c.now())
	if err != nil {
		return nil, &custom_errors.ParseError{Repo: id.String(), Err: err}
	}
	return meta, nil
}

// isRateLimited reports whether err is go-github refusing a call because of the
// primary or secondary rate limit.
func isRateLimited(err error) bool {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	return errors.As(err, &rateErr) || errors.As(err, &abuseErr)
}
