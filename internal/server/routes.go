package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/hupe1980/bigramdict"
)

type bigramJSON struct {
	Target      bigramdict.TerminalID  `json:"target"`
	NodePos     bigramdict.Pos         `json:"node_pos"`
	Probability bigramdict.Probability `json:"probability"`
}

type terminalJSON struct {
	ID      bigramdict.TerminalID `json:"id"`
	NodePos bigramdict.Pos        `json:"node_pos"`
	Bigrams []bigramJSON          `json:"bigrams"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDictError maps dictionary errors to HTTP statuses.
func writeDictError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bigramdict.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bigramdict.ErrInvalidTerminal), errors.Is(err, bigramdict.ErrInvalidNodePos):
		status = http.StatusBadRequest
	case errors.Is(err, bigramdict.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bigramdict.ErrNoStore):
		status = http.StatusConflict
	}
	writeError(w, status, err.Error())
}

func terminalParam(r *http.Request, key string) (bigramdict.TerminalID, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, key), 10, 32)
	if err != nil {
		return bigramdict.NotATerminal, err
	}
	return bigramdict.TerminalID(v), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.dict.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"terminals":       st.Terminals,
		"lists":           st.Lists,
		"bigrams":         st.Bigrams,
		"content_bytes":   st.ContentBytes,
		"reachable_bytes": st.ReachableBytes,
		"abandoned_bytes": st.AbandonedBytes,
		"capacity_bytes":  st.CapacityBytes,
		"decay":           st.Decay,
		"lsn":             st.LSN,
		"version":         st.Version,
		"wal_records":     st.WALRecords,
		"wal_bytes":       st.WALBytes,
	})
}

func (s *Server) handleGetTerminal(w http.ResponseWriter, r *http.Request) {
	id, err := terminalParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid terminal id")
		return
	}
	pos := s.dict.NodePos(id)
	if pos == bigramdict.NotAPos {
		writeError(w, http.StatusNotFound, "terminal not found")
		return
	}
	writeJSON(w, http.StatusOK, terminalJSON{
		ID:      id,
		NodePos: pos,
		Bigrams: toJSON(s.dict.Bigrams(id)),
	})
}

func (s *Server) handlePutTerminal(w http.ResponseWriter, r *http.Request) {
	id, err := terminalParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid terminal id")
		return
	}
	var req struct {
		NodePos *bigramdict.Pos `json:"node_pos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NodePos == nil {
		writeError(w, http.StatusBadRequest, "node_pos required")
		return
	}
	if err := s.dict.AddTerminal(r.Context(), id, *req.NodePos); err != nil {
		writeDictError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "node_pos": *req.NodePos})
}

func (s *Server) handleDeleteTerminal(w http.ResponseWriter, r *http.Request) {
	id, err := terminalParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid terminal id")
		return
	}
	if err := s.dict.RemoveTerminal(r.Context(), id); err != nil {
		writeDictError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBigrams(w http.ResponseWriter, r *http.Request) {
	id, err := terminalParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid terminal id")
		return
	}
	writeJSON(w, http.StatusOK, toJSON(s.dict.Bigrams(id)))
}

func (s *Server) handlePutBigram(w http.ResponseWriter, r *http.Request) {
	id, err := terminalParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid terminal id")
		return
	}
	target, err := terminalParam(r, "target")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}
	var req struct {
		Probability *bigramdict.Probability `json:"probability"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Probability == nil {
		writeError(w, http.StatusBadRequest, "probability required")
		return
	}
	added, err := s.dict.AddBigram(r.Context(), id, target, *req.Probability)
	if err != nil {
		writeDictError(w, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]bool{"created": added})
}

func (s *Server) handleDeleteBigram(w http.ResponseWriter, r *http.Request) {
	id, err := terminalParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid terminal id")
		return
	}
	target, err := terminalParam(r, "target")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}
	if err := s.dict.RemoveBigram(r.Context(), id, target); err != nil {
		writeDictError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	st, err := s.dict.Sweep(r.Context())
	if err != nil {
		writeDictError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lists":       st.Lists,
		"live":        st.Live,
		"removed":     st.Removed,
		"duration_ms": st.Duration.Milliseconds(),
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	m, err := s.dict.Save(r.Context())
	if err != nil {
		writeDictError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func toJSON(bs []bigramdict.Bigram) []bigramJSON {
	out := make([]bigramJSON, 0, len(bs))
	for _, b := range bs {
		out = append(out, bigramJSON(b))
	}
	return out
}
