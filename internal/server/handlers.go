package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/notedex/notedex/internal/engine"
	dexerrors "github.com/notedex/notedex/internal/errors"
	"github.com/notedex/notedex/internal/index"
	"github.com/notedex/notedex/internal/store"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// searchHandler serves GET /api/search?q=...&k=...
type searchHandler struct {
	engine *engine.Engine
}

type searchResult struct {
	Score   float64  `json:"score"`
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Href    string   `json:"href"`
	Date    string   `json:"date,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Snippet string   `json:"snippet"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []searchResult `json:"results"`
}

func (h *searchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, dexerrors.New(dexerrors.ErrCodeQueryEmpty,
			"query parameter q is required", nil))
		return
	}

	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, dexerrors.ValidationError("k must be a positive integer", nil))
			return
		}
		k = n
	}

	results, err := h.engine.Search(r.Context(), query, k)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Count:   len(results),
		Results: toSearchResults(results),
	})
}

func toSearchResults(results []index.Result) []searchResult {
	out := make([]searchResult, 0, len(results))
	for _, res := range results {
		out = append(out, searchResult{
			Score:   res.Score,
			ID:      res.Chunk.ID,
			Title:   res.Chunk.Title,
			Href:    res.Chunk.Href,
			Date:    res.Chunk.Date,
			Tags:    res.Chunk.Tags,
			Snippet: res.Chunk.Snippet,
		})
	}
	return out
}

// statusHandler serves GET /api/status.
type statusHandler struct {
	engine *engine.Engine
}

func (h *statusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

// rebuildHandler serves POST /api/rebuild.
type rebuildHandler struct {
	engine *engine.Engine
}

func (h *rebuildHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Rebuild(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// notesHandler serves the notes CRUD under /api/notes.
type notesHandler struct {
	store store.Store
}

type notesResponse struct {
	Count int           `json:"count"`
	Notes []*store.Note `json:"notes"`
}

type notePayload struct {
	Body string   `json:"body"`
	Tags []string `json:"tags"`
}

func (h *notesHandler) ready(w http.ResponseWriter) bool {
	if h.store == nil {
		writeError(w, dexerrors.New(dexerrors.ErrCodeStoreOpen,
			"note store is not configured", nil))
		return false
	}
	return true
}

func (h *notesHandler) list(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	notes, err := h.store.ListNotes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notesResponse{Count: len(notes), Notes: notes})
}

func (h *notesHandler) get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	note, err := h.store.GetNote(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *notesHandler) put(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var payload notePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, dexerrors.ValidationError("invalid note payload", err))
		return
	}
	if strings.TrimSpace(payload.Body) == "" {
		writeError(w, dexerrors.ValidationError("note body is required", nil))
		return
	}

	note, err := h.store.PutNote(r.Context(), chi.URLParam(r, "key"), payload.Body, payload.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *notesHandler) del(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	if err := h.store.DeleteNote(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
