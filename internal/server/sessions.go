package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/calavorn/realmmap/pkg/drill"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/region"
)

type sessionResponse struct {
	ID       string            `json:"id"`
	Snapshot explorer.Snapshot `json:"snapshot"`
}

type clickResponse struct {
	sessionResponse
	Transition drill.Transition `json:"transition"`
}

// pointer is a position on a display of size W×H.
type pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W int     `json:"w"`
	H int     `json:"h"`
}

type hoverRequest struct {
	Region string `json:"region"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ls, err := s.create(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: ls.sess.ID, Snapshot: ls.x.Snapshot()})
}

// withSession runs fn under the session's lock and saves afterwards.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(ls *liveSession) (any, error)) {
	ls, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if err := ls.gone(); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := fn(ls)
	s.save(r.Context(), ls)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ls *liveSession) (any, error) {
		return sessionResponse{ID: ls.sess.ID, Snapshot: ls.x.Snapshot()}, nil
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ls, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if err := ls.gone(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.discard(r.Context(), ls); err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInternal, err, "delete session"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelectTier(w http.ResponseWriter, r *http.Request) {
	tier, err := region.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withSession(w, r, func(ls *liveSession) (any, error) {
		err := ls.x.Load(r.Context(), tier)
		return sessionResponse{ID: ls.sess.ID, Snapshot: ls.x.Snapshot()}, err
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ls *liveSession) (any, error) {
		err := ls.x.Reload(r.Context())
		return sessionResponse{ID: ls.sess.ID, Snapshot: ls.x.Snapshot()}, err
	})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var p pointer
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withSession(w, r, func(ls *liveSession) (any, error) {
		snap, err := ls.x.Move(r.Context(), p.X, p.Y, p.W, p.H)
		return sessionResponse{ID: ls.sess.ID, Snapshot: snap}, err
	})
}

func (s *Server) handleHover(w http.ResponseWriter, r *http.Request) {
	var req hoverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withSession(w, r, func(ls *liveSession) (any, error) {
		snap, err := ls.x.HoverRegion(r.Context(), req.Region)
		return sessionResponse{ID: ls.sess.ID, Snapshot: snap}, err
	})
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ls *liveSession) (any, error) {
		snap, t, err := ls.x.Click(r.Context())
		return clickResponse{sessionResponse{ID: ls.sess.ID, Snapshot: snap}, t}, err
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ls *liveSession) (any, error) {
		snap, err := ls.x.Reset(r.Context())
		return sessionResponse{ID: ls.sess.ID, Snapshot: snap}, err
	})
}
