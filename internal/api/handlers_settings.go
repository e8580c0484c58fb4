package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/AkutaZehy/Annoti/internal/settings"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.settings.Load()
	if err != nil {
		jsonError(w, "loading settings: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var cfg settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		jsonError(w, "invalid settings body", http.StatusBadRequest)
		return
	}
	if err := s.settings.Save(&cfg); err != nil {
		jsonError(w, "saving settings: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleGetUISettings returns the opaque frontend blob, 204 when absent.
func (s *Server) handleGetUISettings(w http.ResponseWriter, r *http.Request) {
	data, err := s.settings.LoadUI()
	if err != nil {
		jsonError(w, "loading ui settings: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handlePutUISettings(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes))
	if err != nil {
		jsonError(w, "reading ui settings: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.settings.SaveUI(data); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleGetTypography(w http.ResponseWriter, r *http.Request) {
	ty, err := s.settings.LoadTypography()
	if err != nil {
		jsonError(w, "loading typography: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ty)
}

func (s *Server) handlePutTypography(w http.ResponseWriter, r *http.Request) {
	var ty settings.Typography
	if err := json.NewDecoder(r.Body).Decode(&ty); err != nil {
		jsonError(w, "invalid typography body", http.StatusBadRequest)
		return
	}
	if err := s.settings.SaveTypography(&ty); err != nil {
		jsonError(w, "saving typography: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ty)
}
