// Package session persists explorer sessions between requests.
//
// A session is an id plus the saved part of an explorer: the selected
// tier, the drill state and the hovered region. Stores come in three
// flavours:
//   - memory: in-process storage for a single server
//   - redis: shared storage for several server instances
//   - file: JSON files for the terminal explorer's resume support
//
// # Usage
//
//	sess := session.New(session.DefaultTTL)
//	sess.Saved = x.Save()
//	if err := store.Set(ctx, sess); err != nil {
//	    return err
//	}
//
//	sess, err := store.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if sess == nil {
//	    // unknown or expired
//	}
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/calavorn/realmmap/pkg/explorer"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("not found")

// Session is one persisted exploration.
type Session struct {
	ID        string         `json:"id"`
	Saved     explorer.Saved `json:"saved"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch extends the session's lifetime by ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	s.ExpiresAt = time.Now().Add(ttl)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions (may be a no-op for Redis).
	Cleanup(ctx context.Context) error

	Close() error
}

// DefaultTTL is the default session duration.
const DefaultTTL = 2 * time.Hour

// GenerateID returns a random session id.
func GenerateID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an id from GenerateID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// New creates an empty session.
func New(ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        GenerateID(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
