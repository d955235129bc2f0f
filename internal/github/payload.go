// internal/github/payload.go
package github

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github-metadata-updater/internal/model"
)

var errNotAnObject = errors.New("response body is not a JSON object")

// repoPayload mirrors the fields we read from GET /repos/{owner}/{repo}.
// Every field type accepts any JSON value and falls back to its default.
type repoPayload struct {
	Description lenientString `json:"description"`
	Stars       lenientInt    `json:"stargazers_count"`
	Forks       lenientInt    `json:"forks_count"`
	OpenIssues  lenientInt    `json:"open_issues"`
	PushedAt    lenientTime   `json:"pushed_at"`
}

// decodeRepoMetadata parses a repository body. Only a body that is not a
// well-formed JSON object is an error; missing or mistyped fields take their
// defaults, with now standing in for an unusable pushed_at.
func decodeRepoMetadata(body []byte, now time.Time) (*model.RepoMetadata, error) {
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		return nil, errNotAnObject
	}

	var p repoPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, err
	}

	lastCommit := now
	if p.PushedAt.valid {
		lastCommit = p.PushedAt.t
	}

	return &model.RepoMetadata{
		Description: string(p.Description),
		Stars:       int64(p.Stars),
		Forks:       int64(p.Forks),
		Issues:      int64(p.OpenIssues),
		LastCommit:  lastCommit,
	}, nil
}

type lenientString string

func (s *lenientString) UnmarshalJSON(b []byte) error {
	var v string
	if json.Unmarshal(b, &v) == nil {
		*s = lenientString(v)
	}
	return nil
}

type lenientInt int64

func (n *lenientInt) UnmarshalJSON(b []byte) error {
	// Quoted numbers are strings, not integers.
	if len(b) == 0 || b[0] == '"' {
		return nil
	}
	var num json.Number
	if json.Unmarshal(b, &num) != nil {
		return nil
	}
	if v, err := num.Int64(); err == nil {
		*n = lenientInt(v)
	}
	return nil
}

type lenientTime struct {
	t     time.Time
	valid bool
}

func (lt *lenientTime) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) != nil {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		lt.t, lt.valid = t.UTC(), true
	}
	return nil
}
