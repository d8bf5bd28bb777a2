package server

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/inkpath/plotline/pkg/errors"
	"github.com/inkpath/plotline/pkg/export"
	"github.com/inkpath/plotline/pkg/pipeline"
	"github.com/inkpath/plotline/pkg/scene"
	"github.com/inkpath/plotline/pkg/story"
	"github.com/inkpath/plotline/pkg/suggest"
	"github.com/inkpath/plotline/pkg/trail"
)

// =============================================================================
// Story CRUD
// =============================================================================

func (s *Server) handleListStories(w http.ResponseWriter, req *http.Request) {
	ids, err := s.store.List(req.Context())
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeStorage, err, "list stories"))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	slices.Sort(ids)
	writeJSON(w, http.StatusOK, map[string][]string{"story_ids": ids})
}

func (s *Server) handleGetStory(w http.ResponseWriter, req *http.Request) {
	st, err := s.loadStory(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handlePutStory(w http.ResponseWriter, req *http.Request) {
	var st story.Story
	if err := decodeJSON(req, &st); err != nil {
		writeError(w, err)
		return
	}
	// The path is authoritative for the story ID.
	st.ID = chi.URLParam(req, "storyID")
	if err := s.store.Save(req.Context(), &st); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeStorage, err, "save story %s", st.ID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": st.ID})
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "storyID")
	if err := s.store.Delete(req.Context(), id); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeStorage, err, "delete story %s", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Engine endpoints
// =============================================================================

// analyzeRequest carries the pipeline options a client may set.
type analyzeRequest struct {
	RootID        string                    `json:"root_id,omitempty"`
	CurrentID     string                    `json:"current_id,omitempty"`
	PreviousDepth int                       `json:"previous_depth,omitempty"`
	Policy        string                    `json:"policy,omitempty"`
	Collapsed     []string                  `json:"collapsed,omitempty"`
	Positions     map[string]scene.Position `json:"positions,omitempty"`
	Refresh       bool                      `json:"refresh,omitempty"`
}

// analysisSummary is the API shape of the diagnostics, with set-valued fields
// flattened to sorted ID lists.
type analysisSummary struct {
	RootID            string   `json:"root_id"`
	OrphanCardIDs     []string `json:"orphan_card_ids"`
	DeadEndCardIDs    []string `json:"dead_end_card_ids"`
	IncompleteCardIDs []string `json:"incomplete_card_ids"`
	MaxDepth          int      `json:"max_depth"`
}

type trailSummary struct {
	OrderedPath []string         `json:"ordered_path"`
	Branch      trail.BranchInfo `json:"branch"`
	Progress    trail.Progress   `json:"progress"`
}

type analyzeResponse struct {
	StoryHash string          `json:"story_hash"`
	Analysis  analysisSummary `json:"analysis"`
	Trail     *trailSummary   `json:"trail,omitempty"`
	Nodes     []scene.Node    `json:"nodes"`
	Edges     []scene.Edge    `json:"edges"`
	CacheHit  bool            `json:"cache_hit"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, req *http.Request) {
	st, err := s.loadStory(req)
	if err != nil {
		writeError(w, err)
		return
	}
	var body analyzeRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.runnerFor(st.ID).Execute(req.Context(), st, pipeline.Options{
		RootID:        body.RootID,
		CurrentID:     body.CurrentID,
		PreviousDepth: body.PreviousDepth,
		Policy:        body.Policy,
		Collapsed:     body.Collapsed,
		Positions:     body.Positions,
		Refresh:       body.Refresh,
	})
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "analyze story %s", st.ID))
		return
	}

	resp := analyzeResponse{
		StoryHash: result.StoryHash,
		Analysis: analysisSummary{
			RootID:            result.Analysis.RootID,
			OrphanCardIDs:     sortedIDs(result.Analysis.OrphanCards),
			DeadEndCardIDs:    sortedIDs(result.Analysis.DeadEndCards),
			IncompleteCardIDs: sortedIDs(result.Analysis.IncompleteCards),
			MaxDepth:          result.Analysis.MaxDepth(),
		},
		Nodes:    result.Nodes,
		Edges:    result.Edges,
		CacheHit: result.CacheInfo.AnalysisHit,
	}
	if body.CurrentID != "" {
		resp.Trail = &trailSummary{
			OrderedPath: result.Ancestry.OrderedPath,
			Branch:      result.Branch,
			Progress:    result.Progress,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type ancestryRequest struct {
	CurrentID string `json:"current_id"`
	RootID    string `json:"root_id,omitempty"`
}

func (s *Server) handleAncestry(w http.ResponseWriter, req *http.Request) {
	st, err := s.loadStory(req)
	if err != nil {
		writeError(w, err)
		return
	}
	var body ancestryRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.CurrentID == "" {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "current_id is required"))
		return
	}
	if _, ok := st.Card(body.CurrentID); !ok {
		writeError(w, apperrors.New(apperrors.ErrCodeCardNotFound, "card %s not found", body.CurrentID))
		return
	}

	rootID := body.RootID
	if rootID == "" {
		rootID = st.FirstCardID
	}
	a := trail.AncestryPath(body.CurrentID, rootID, st.Choices)
	writeJSON(w, http.StatusOK, map[string][]string{"ordered_path": a.OrderedPath})
}

type suggestRequest struct {
	OrphanCardID string `json:"orphan_card_id"`
	RootID       string `json:"root_id,omitempty"`
	Policy       string `json:"policy,omitempty"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, req *http.Request) {
	st, err := s.loadStory(req)
	if err != nil {
		writeError(w, err)
		return
	}
	var body suggestRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.OrphanCardID == "" {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "orphan_card_id is required"))
		return
	}
	if _, ok := st.Card(body.OrphanCardID); !ok {
		writeError(w, apperrors.New(apperrors.ErrCodeCardNotFound, "card %s not found", body.OrphanCardID))
		return
	}

	result, err := s.runnerFor(st.ID).Execute(req.Context(), st, pipeline.Options{
		RootID: body.RootID,
		Policy: body.Policy,
	})
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "analyze story %s", st.ID))
		return
	}

	suggestions := suggest.Parents(body.OrphanCardID, st, result.Analysis)
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}
	writeJSON(w, http.StatusOK, map[string][]suggest.Suggestion{"suggestions": suggestions})
}

type exportRequest struct {
	Format   string `json:"format"` // dot or svg
	Detailed bool   `json:"detailed,omitempty"`
	RootID   string `json:"root_id,omitempty"`
}

func (s *Server) handleExport(w http.ResponseWriter, req *http.Request) {
	st, err := s.loadStory(req)
	if err != nil {
		writeError(w, err)
		return
	}
	var body exportRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Format == "" {
		body.Format = export.FormatDOT
	}
	if !export.ValidFormats[body.Format] {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidFormat, "unsupported format %q", body.Format))
		return
	}

	result, err := s.runnerFor(st.ID).Execute(req.Context(), st, pipeline.Options{RootID: body.RootID})
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "analyze story %s", st.ID))
		return
	}

	dot := export.ToDOT(result.Nodes, result.Edges, export.Options{
		Detailed: body.Detailed,
		Title:    st.Title,
	})
	if body.Format == export.FormatDOT {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(dot))
		return
	}

	svg, err := export.RenderSVG(req.Context(), dot)
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, err, "render svg"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) loadStory(req *http.Request) (*story.Story, error) {
	id := chi.URLParam(req, "storyID")
	st, err := s.store.Load(req.Context(), id)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func sortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
