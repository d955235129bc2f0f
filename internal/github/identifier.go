// internal/github/identifier.go
package github

import (
	"regexp"
	"strings"
)

var repoURLPattern = regexp.MustCompile(`^(?i:https?)://(?i:github\.com)/([\w.-]+)/([\w.-]+)`)

// RepoIdentifier holds the owner and name of a repository.
type RepoIdentifier struct {
	Owner string
	Name  string
}

// String returns the identifier in 'owner/name' form.
func (id RepoIdentifier) String() string {
	return id.Owner + "/" + id.Name
}

// ParseRepoURL extracts the owner and repository name from a github.com URL.
// A single trailing ".git" is dropped from the repository name; any path
// segments after the repository are ignored.
func ParseRepoURL(raw string) (RepoIdentifier, bool) {
	m := repoURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return RepoIdentifier{}, false
	}

	owner, name := m[1], strings.TrimSuffix(m[2], ".git")
	if isDotSegment(owner) || isDotSegment(name) || name == "" {
		return RepoIdentifier{}, false
	}
	return RepoIdentifier{Owner: owner, Name: name}, true
}

// isDotSegment reports whether s would be resolved away as a relative path
// segment when the identifier is joined into the API URL.
func isDotSegment(s string) bool {
	return s == "." || s == ".."
}
