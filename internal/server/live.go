package server

import (
	"context"
	"sync"
	"time"

	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/session"
)

// liveSession is an explorer held in memory. mu serialises events so each
// event and the save that follows it are atomic with respect to other
// requests for the same session. removed is set under mu once the session
// is deleted; later events fail and nothing is saved.
type liveSession struct {
	mu       sync.Mutex
	sess     *session.Session
	x        *explorer.Explorer
	removed  bool
	lastUsed time.Time
}

func (ls *liveSession) gone() error {
	if ls.removed {
		return errs.New(errs.ErrCodeSessionNotFound, "session %q not found", ls.sess.ID)
	}
	return nil
}

type liveSessions struct {
	mu sync.Mutex
	m  map[string]*liveSession
}

func newLiveSessions() *liveSessions {
	return &liveSessions{m: make(map[string]*liveSession)}
}

func (l *liveSessions) get(id string) (*liveSession, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ls, ok := l.m[id]
	if ok {
		ls.lastUsed = time.Now()
	}
	return ls, ok
}

// put stores ls unless another request stored one for the same id first;
// the stored session is returned.
func (l *liveSessions) put(ls *liveSession) *liveSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.m[ls.sess.ID]; ok {
		return cur
	}
	ls.lastUsed = time.Now()
	l.m[ls.sess.ID] = ls
	return ls
}

func (l *liveSessions) remove(id string) {
	l.mu.Lock()
	delete(l.m, id)
	l.mu.Unlock()
}

func (l *liveSessions) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *liveSessions) evictIdle(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-ttl)
	n := 0
	for id, ls := range l.m {
		if ls.lastUsed.Before(cutoff) {
			delete(l.m, id)
			n++
		}
	}
	return n
}

// create starts a new session.
func (s *Server) create(ctx context.Context) (*liveSession, error) {
	ls := &liveSession{sess: session.New(s.opts.SessionTTL), x: explorer.New(s.registry)}
	if err := s.store.Set(ctx, ls.sess); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "store session")
	}
	s.live.put(ls)
	s.countSessions()
	return ls, nil
}

// lookup finds a session in memory, falling back to the store. A stored
// session is restored into a fresh explorer.
func (s *Server) lookup(ctx context.Context, id string) (*liveSession, error) {
	if !session.ValidID(id) {
		return nil, errs.New(errs.ErrCodeSessionNotFound, "session %q not found", id)
	}
	if ls, ok := s.live.get(id); ok {
		return ls, nil
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "load session")
	}
	if sess == nil {
		return nil, errs.New(errs.ErrCodeSessionNotFound, "session %q not found", id)
	}
	ls := &liveSession{sess: sess, x: explorer.New(s.registry)}
	if err := ls.x.Restore(ctx, sess.Saved); err != nil {
		s.logger.Warn("session restore failed", "session", id, "tier", sess.Saved.Tier, "err", err)
	}
	ls = s.live.put(ls)
	s.countSessions()
	return ls, nil
}

// save persists the explorer's state and extends the session. The caller
// holds ls.mu.
func (s *Server) save(ctx context.Context, ls *liveSession) {
	if ls.removed {
		return
	}
	ls.sess.Saved = ls.x.Save()
	ls.sess.Touch(s.opts.SessionTTL)
	if err := s.store.Set(ctx, ls.sess); err != nil {
		s.logger.Warn("session save failed", "session", ls.sess.ID, "err", err)
	}
}

// discard deletes the session. The caller holds ls.mu.
func (s *Server) discard(ctx context.Context, ls *liveSession) error {
	id := ls.sess.ID
	ls.removed = true
	s.live.remove(id)
	s.countSessions()
	return s.store.Delete(ctx, id)
}

func (s *Server) countSessions() {
	if s.metrics != nil {
		s.metrics.Sessions.Set(float64(s.live.len()))
	}
}
