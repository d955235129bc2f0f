// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Kind tags the outcome of processing a single sync candidate.
type Kind string

const (
	KindNone              Kind = "ok"
	KindExtraction        Kind = "extraction"
	KindTransport         Kind = "transport"
	KindRemoteUnavailable Kind = "remote_unavailable"
	KindParse             Kind = "parse"
	KindPersist           Kind = "persist"
	KindUnknown           Kind = "unknown"
)

// ExtractionError is returned when a repository URL does not point at a github.com repository.
type ExtractionError struct {
	URL string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("invalid repository url: %q, expected 'https://github.com/owner/repo'", e.URL)
}

func (e *ExtractionError) Kind() Kind { return KindExtraction }

// TransportError wraps a network-level failure talking to the GitHub API.
type TransportError struct {
	Repo string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request for %s failed: %v", e.Repo, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Kind() Kind { return KindTransport }

// RemoteUnavailableError is returned when the GitHub API answers with anything other than 200 OK.
type RemoteUnavailableError struct {
	Repo       string
	StatusCode int
	// RateLimited is set when GitHub refused the call because the rate limit is
	// exhausted. The refusal may come from the client without any request being sent.
	RateLimited bool
	Err         error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("github returned status %d for %s", e.StatusCode, e.Repo)
}

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

func (e *RemoteUnavailableError) Kind() Kind { return KindRemoteUnavailable }

// ParseError is returned when the response body is not a JSON object.
type ParseError struct {
	Repo string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed response for %s: %v", e.Repo, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Kind() Kind { return KindParse }

// PersistError wraps a failed write of fetched metadata.
type PersistError struct {
	PackageID int64
	Err       error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to store metadata for package %d: %v", e.PackageID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

func (e *PersistError) Kind() Kind { return KindPersist }

// KindOf reports the Kind of the first error in err's chain that carries one.
// A nil error is KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}
