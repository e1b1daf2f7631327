package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"setlister/internal/app/setlists"
	"setlister/internal/export"
	"setlister/internal/models"
)

type createSetlistRequest struct {
	Name        string     `json:"name" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	BandID      *uuid.UUID `json:"band_id"`
	IsPublic    bool       `json:"is_public"`
}

type updateSetlistRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	IsPublic    *bool   `json:"is_public"`
}

type addEntryRequest struct {
	SongID   uuid.UUID  `json:"song_id" validate:"required"`
	Position int        `json:"position" validate:"gte=0"`
	BlockID  *uuid.UUID `json:"block_id"`
	Notes    string     `json:"notes" validate:"max=1000"`
}

type placementRequest struct {
	EntryID  uuid.UUID  `json:"entry_id" validate:"required"`
	Position int        `json:"position" validate:"gte=0"`
	BlockID  *uuid.UUID `json:"block_id"`
}

type reorderRequest struct {
	Entries []placementRequest `json:"entries" validate:"required,min=1,dive"`
}

type blockRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Position *int   `json:"position" validate:"omitempty,gte=0"`
}

type renameBlockRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type blockOrderRequest struct {
	Blocks []uuid.UUID `json:"blocks" validate:"required,min=1"`
}

type spotifyExportRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

func (s *Server) handleListSetlists(w http.ResponseWriter, r *http.Request) {
	list, err := s.setlists.List(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Setlist{}
	}
	writeJSON(w, http.StatusOK, struct {
		Setlists []*models.Setlist `json:"setlists"`
	}{Setlists: list})
}

func (s *Server) handleCreateSetlist(w http.ResponseWriter, r *http.Request) {
	var req createSetlistRequest
	if !decode(w, r, &req) {
		return
	}

	created, err := s.setlists.Create(r.Context(), actor(r), setlists.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		BandID:      req.BandID,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetSetlist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	setlist, err := s.setlists.Get(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setlist)
}

func (s *Server) handleUpdateSetlist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateSetlistRequest
	if !decode(w, r, &req) {
		return
	}

	updated, err := s.setlists.Update(r.Context(), actor(r), id, setlists.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSetlist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.setlists.Delete(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entries, err := s.setlists.ListEntries(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeEntries(w, http.StatusOK, entries)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req addEntryRequest
	if !decode(w, r, &req) {
		return
	}

	entry, err := s.setlists.AddEntry(r.Context(), actor(r), id, setlists.AddEntryInput{
		SongID:   req.SongID,
		Position: req.Position,
		BlockID:  req.BlockID,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleRemoveSong(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	songID, ok := pathID(w, r, "songId")
	if !ok {
		return
	}
	if err := s.setlists.RemoveEntry(r.Context(), actor(r), id, songID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entryID, ok := pathID(w, r, "entryId")
	if !ok {
		return
	}
	if err := s.setlists.RemoveEntryByID(r.Context(), actor(r), id, entryID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if !decode(w, r, &req) {
		return
	}

	placements := make([]setlists.Placement, 0, len(req.Entries))
	for _, p := range req.Entries {
		placements = append(placements, setlists.Placement{
			EntryID:  p.EntryID,
			Position: p.Position,
			BlockID:  p.BlockID,
		})
	}

	entries, err := s.setlists.ReorderEntries(r.Context(), actor(r), id, placements)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeEntries(w, http.StatusOK, entries)
}

func writeEntries(w http.ResponseWriter, status int, entries []models.EntryView) {
	if entries == nil {
		entries = []models.EntryView{}
	}
	writeJSON(w, status, struct {
		Entries []models.EntryView `json:"entries"`
	}{Entries: entries})
}

func (s *Server) handleCreateBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req blockRequest
	if !decode(w, r, &req) {
		return
	}

	block, err := s.setlists.CreateBlock(r.Context(), actor(r), id, setlists.BlockInput{
		Name:     req.Name,
		Position: req.Position,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

func (s *Server) handleRenameBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	blockID, ok := pathID(w, r, "blockId")
	if !ok {
		return
	}
	var req renameBlockRequest
	if !decode(w, r, &req) {
		return
	}

	block, err := s.setlists.RenameBlock(r.Context(), actor(r), id, blockID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleMoveBlocks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req blockOrderRequest
	if !decode(w, r, &req) {
		return
	}

	blocks, err := s.setlists.MoveBlocks(r.Context(), actor(r), id, req.Blocks)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Blocks []models.Block `json:"blocks"`
	}{Blocks: blocks})
}

func (s *Server) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	blockID, ok := pathID(w, r, "blockId")
	if !ok {
		return
	}
	if err := s.setlists.DeleteBlock(r.Context(), actor(r), id, blockID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportView(w http.ResponseWriter, r *http.Request) (export.View, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return export.View{}, false
	}
	setlist, sections, err := s.setlists.Sections(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return export.View{}, false
	}
	return export.View{Setlist: setlist, Sections: sections}, true
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if s.pdf == nil {
		unavailable(w, "pdf export")
		return
	}
	view, ok := s.exportView(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.pdf.Render(&buf, view); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename(view.Setlist.Name)+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportSpotify(w http.ResponseWriter, r *http.Request) {
	if s.spotify == nil {
		unavailable(w, "spotify export")
		return
	}
	var req spotifyExportRequest
	if !decode(w, r, &req) {
		return
	}
	view, ok := s.exportView(w, r)
	if !ok {
		return
	}

	playlist, err := s.spotify.Export(r.Context(), req.AccessToken, view)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	link, err := s.setlists.Share(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (s *Server) handleShared(w http.ResponseWriter, r *http.Request) {
	setlist, err := s.setlists.Shared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setlist)
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func filename(name string) string {
	slug := strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(name), "-"), "-.")
	if slug == "" {
		return "setlist"
	}
	return strings.ToLower(slug)
}
