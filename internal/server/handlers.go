package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"image/png"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/calavorn/realmmap/pkg/buildinfo"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/hover"
	"github.com/calavorn/realmmap/pkg/region"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

type tierEntry struct {
	Tier   region.Tier `json:"tier"`
	Title  string      `json:"title"`
	Loaded bool        `json:"loaded"`
}

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	loaded := s.registry.Loaded()
	var out []tierEntry
	for _, t := range region.Tiers() {
		out = append(out, tierEntry{Tier: t, Title: t.Title(), Loaded: slices.Contains(loaded, t)})
	}
	writeJSON(w, http.StatusOK, out)
}

// bundle resolves the {tier} URL parameter to a loaded bundle.
func (s *Server) bundle(r *http.Request) (*explorer.Bundle, error) {
	tier, err := region.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		return nil, err
	}
	return s.registry.Bundle(r.Context(), tier)
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	b, err := s.bundle(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := json.Marshal(b.Graph.Dataset())
	if err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInternal, err, "encode dataset"))
		return
	}
	serveCached(w, r, "application/json", data)
}

// handleLegacyData answers like the original backend: the dataset, or 404
// with {"error": "Data not found"}.
func (s *Server) handleLegacyData(w http.ResponseWriter, r *http.Request) {
	b, err := s.bundle(r)
	if err != nil {
		if errs.HTTPStatus(err) < 500 {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Data not found"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	data, err := json.Marshal(b.Graph.Dataset())
	if err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInternal, err, "encode dataset"))
		return
	}
	serveCached(w, r, "application/json", data)
}

func (s *Server) handleBaseMap(w http.ResponseWriter, r *http.Request) {
	b, err := s.bundle(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if b.Map == nil {
		s.writeError(w, r, errs.New(errs.ErrCodeNotFound, "no base map for tier %s", b.Tier))
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, b.Map.Image()); err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInternal, err, "encode base map"))
		return
	}
	serveCached(w, r, "image/png", buf.Bytes())
}

type regionResponse struct {
	hover.Info
	Ancestors  []string `json:"ancestors"`
	SubjectIDs []string `json:"subject_ids"`
	Depth      int      `json:"depth"`
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	b, err := s.bundle(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := errs.ValidateRegionID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	info, ok := b.Resolver.Info(id)
	if !ok {
		s.writeError(w, r, errs.New(errs.ErrCodeRegionNotFound, "region %q not found in tier %s", id, b.Tier))
		return
	}
	chain := b.Graph.Chain(id)
	writeJSON(w, http.StatusOK, regionResponse{
		Info:       info,
		Ancestors:  chain[1:],
		SubjectIDs: append([]string{}, b.Graph.Subjects(id)...),
		Depth:      b.Graph.Depth(id),
	})
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	b, err := s.bundle(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	type issue struct {
		Kind   region.IssueKind `json:"kind"`
		Region string           `json:"region"`
		Ref    string           `json:"ref,omitempty"`
	}
	out := []issue{}
	for _, i := range b.Graph.Issues() {
		out = append(out, issue{Kind: i.Kind, Region: i.Region, Ref: i.Ref})
	}
	writeJSON(w, http.StatusOK, out)
}

// serveCached writes data with a content-hash ETag, answering 304 when
// the client already has it.
func serveCached(w http.ResponseWriter, r *http.Request, contentType string, data []byte) {
	sum := sha256.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func etagMatches(header, etag string) bool {
	for _, v := range strings.Split(header, ",") {
		v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "W/"))
		if v == etag || v == "*" {
			return true
		}
	}
	return false
}
