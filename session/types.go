// Package session serves named browser pages grouped by session over
// HTTP/JSON and provides the matching client. The server remembers which
// CDP target backs each page name in SQLite so pages outlive the
// processes that created them.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound is returned for an unknown session or page.
	ErrNotFound = errors.New("session: not found")
	// ErrExists is returned when a page name is already taken in a session.
	ErrExists = errors.New("session: page already exists")
	// ErrInvalidName is returned for page or session names outside nameRe.
	ErrInvalidName = errors.New("session: invalid name")
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidateName checks a page or session name.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// PageInfo describes a named page.
type PageInfo struct {
	Name       string `json:"name"`
	TargetID   string `json:"targetId"`
	WSEndpoint string `json:"wsEndpoint"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

// ServerInfo is returned by GET /.
type ServerInfo struct {
	WSEndpoint string `json:"wsEndpoint"`
}

// CreatePageRequest is the body of POST /sessions/{sid}/pages.
type CreatePageRequest struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// PageHost is the browser side of the server: it creates, inspects and
// closes CDP targets.
type PageHost interface {
	CreateTarget(ctx context.Context, url string) (targetID string, err error)
	CloseTarget(ctx context.Context, targetID string) error
	TargetInfo(ctx context.Context, targetID string) (title, url string, err error)
	WSEndpoint() string
}
