package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/config"
)

// requireWatch answers 501 when the server runs without a watcher.
func (s *Server) requireWatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.watch == nil {
			s.respondError(w, http.StatusNotImplemented, "watch not enabled")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	dir, status, msg := resolveDirectory(req.Path)
	if status != 0 {
		s.respondError(w, status, msg)
		return
	}
	syncExisting := req.Sync == nil || *req.Sync
	s.logger.Debug("watch directory add requested", zap.String("path", dir), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(dir, syncExisting); err != nil {
		s.logger.Error("watch directory add failed", zap.String("path", dir), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchConfig()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": dir, "status": "added"})
}

// handleWatchDirectoriesRemove takes the path from the query string or, failing that, a JSON body.
func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		path = body.Path
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	dir, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(dir); err != nil {
		s.logger.Error("watch directory remove failed", zap.String("path", dir), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchConfig()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": dir, "status": "removed"})
}

// resolveDirectory returns the absolute form of an existing directory, or the HTTP status
// and message to reject it with.
func resolveDirectory(path string) (string, int, string) {
	if path == "" {
		return "", http.StatusBadRequest, "path is required"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", http.StatusBadRequest, "invalid path"
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", http.StatusNotFound, "directory not found"
	case err != nil:
		return "", http.StatusInternalServerError, err.Error()
	case !info.IsDir():
		return "", http.StatusBadRequest, "path is not a directory"
	}
	return abs, 0, ""
}

// persistWatchConfig writes the watched directories back to the config file, if one is known.
func (s *Server) persistWatchConfig() {
	if s.configPath == "" || s.app.Config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.app.Config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.app.Config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.String("path", s.configPath), zap.Error(err))
	}
}
