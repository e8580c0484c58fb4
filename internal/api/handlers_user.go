package api

import (
	"encoding/json"
	"net/http"

	"github.com/AkutaZehy/Annoti/internal/username"
)

// handleGetUser returns the local user, creating one with a random name
// on first run.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.GetOrCreateUser(username.Random())
	if err != nil {
		jsonError(w, "loading user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleRenameUser renames the user in both the database and
// settings.json. Existing annotations keep their original author name.
func (s *Server) handleRenameUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}

	u, err := s.store.GetOrCreateUser(username.Random())
	if err != nil {
		jsonError(w, "loading user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.store.UpdateUserName(u.ID, req.Name); err != nil {
		jsonError(w, "renaming user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if cfg, err := s.settings.Load(); err == nil {
		cfg.User.Name = req.Name
		if err := s.settings.Save(cfg); err != nil {
			s.log.Warn("settings not updated after rename", "error", err)
		}
	}
	u.Name = req.Name
	writeJSON(w, http.StatusOK, u)
}

// handleRandomName rolls a fresh display name without applying it.
func (s *Server) handleRandomName(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"name": username.Random()})
}
