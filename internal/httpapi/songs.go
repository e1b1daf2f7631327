package httpapi

import (
	"net/http"
	"strconv"

	"setlister/internal/app/songs"
	"setlister/internal/models"
)

type songRequest struct {
	Title           string  `json:"title" validate:"required,max=200"`
	Artist          string  `json:"artist" validate:"required,max=200"`
	Key             string  `json:"key" validate:"max=16"`
	Tempo           float64 `json:"tempo" validate:"gte=0"`
	DurationSeconds int     `json:"duration_seconds" validate:"gte=0"`
	Notes           string  `json:"notes" validate:"max=2000"`
	ExternalRef     string  `json:"external_ref" validate:"max=300"`
}

func (req songRequest) input() songs.Input {
	return songs.Input{
		Title:           req.Title,
		Artist:          req.Artist,
		Key:             req.Key,
		Tempo:           req.Tempo,
		DurationSeconds: req.DurationSeconds,
		Notes:           req.Notes,
		ExternalRef:     req.ExternalRef,
	}
}

// handleListSongs searches the catalog with optional q, artist and limit
// query parameters.
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.SongFilter{
		Query:  query.Get("q"),
		Artist: query.Get("artist"),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	list, err := s.songs.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Song{}
	}
	writeJSON(w, http.StatusOK, struct {
		Songs []models.Song `json:"songs"`
	}{Songs: list})
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if !decode(w, r, &req) {
		return
	}
	song, err := s.songs.Create(r.Context(), actor(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	song, err := s.songs.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req songRequest
	if !decode(w, r, &req) {
		return
	}
	song, err := s.songs.Update(r.Context(), actor(r), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.songs.Delete(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
