package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/maxent-labs/gisstore/internal/app"
	"github.com/maxent-labs/gisstore/internal/domain"
)

// ─── Model artifacts (/v1/models/*) ─────────────────────────────────────────

// ArtifactExt is appended to a model name to form its file name in the store.
const ArtifactExt = ".db"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

func validName(name string) bool {
	return namePattern.MatchString(name) && !strings.Contains(name, "..")
}

func (s *Server) artifactPath(name string) string {
	return filepath.Join(s.storeDir, name+ArtifactExt)
}

// redact strips the store directory from messages sent to clients.
func (s *Server) redact(msg string) string {
	return strings.ReplaceAll(msg, filepath.Clean(s.storeDir)+string(filepath.Separator), "")
}

type modelEntry struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified_at"`
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.storeDir)
	if err != nil && !os.IsNotExist(err) {
		writeError(w, http.StatusInternalServerError, domain.ErrorKind(domain.ErrDestinationUnavailable), s.redact(err.Error()))
		return
	}

	data := make([]modelEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ArtifactExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		data = append(data, modelEntry{
			Name:     strings.TrimSuffix(e.Name(), ArtifactExt),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data":   data,
	})
}

// handlePutModel persists the uploaded snapshot, replacing any artifact of the same name.
func (s *Server) handlePutModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validName(name) {
		writeError(w, http.StatusBadRequest, "invalid_name", "invalid model name: "+name)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, domain.ErrorKind(domain.ErrInvalidSnapshot), err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	snapshot, err := app.ParseSnapshot(bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrorKind(err), err.Error())
		return
	}

	unlock := s.locks.lock(name)
	defer unlock()

	result, err := s.writer.Persist(r.Context(), snapshot, s.artifactPath(name))
	if err != nil {
		s.logger.Warn("persist failed", zap.String("model", name), zap.Error(err))
		writeError(w, persistStatus(err), domain.ErrorKind(err), s.redact(err.Error()))
		return
	}

	s.logger.Info("model persisted",
		zap.String("model", name),
		zap.String("run_id", result.RunID),
		zap.Int("parameters", result.Rows.Parameters),
	)
	// Clients address artifacts by name; the server's filesystem layout stays private.
	result.Destination = name + ArtifactExt
	writeJSON(w, http.StatusCreated, result)
}

// handleGetModel reports verifier stats for a stored artifact.
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !validName(name) {
		writeError(w, http.StatusBadRequest, "invalid_name", "invalid model name: "+name)
		return
	}

	path := s.artifactPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		writeError(w, http.StatusNotFound, "not_found", "model not found: "+name)
		return
	}

	stats, err := s.verifier.Verify(r.Context(), path)
	if err != nil {
		writeError(w, persistStatus(err), domain.ErrorKind(err), s.redact(err.Error()))
		return
	}
	stats.Path = name + ArtifactExt
	writeJSON(w, http.StatusOK, stats)
}

func persistStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrIntegrityViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidSnapshot):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
