package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/ingest"
	"github.com/hyperjump/lumina/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.app.Status(r.Context()))
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (*models.SearchQuery, bool) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if strings.TrimSpace(query.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return nil, false
	}
	return &query, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.app.Engine.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	s.logger.Debug("ask request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	ans, err := s.app.Engine.Ask(r.Context(), query)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, ans)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("clear knowledge request")
	cleared := s.app.Clear(r.Context())
	s.respondJSON(w, http.StatusOK, map[string]bool{"cleared": cleared})
}

type ingestURLsRequest struct {
	URLs []string `json:"urls"`
}

func (s *Server) handleIngestURLs(w http.ResponseWriter, r *http.Request) {
	var req ingestURLsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		s.respondError(w, http.StatusBadRequest, "urls is required")
		return
	}
	s.logger.Debug("ingest urls request", zap.Int("urls", len(req.URLs)))
	report, err := s.app.Indexer.IngestURLs(r.Context(), req.URLs)
	if err != nil {
		s.logger.Error("ingest urls failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

type ingestJSONRequest struct {
	Source string          `json:"source"`
	Data   json.RawMessage `json:"data"`
}

func (s *Server) handleIngestJSON(w http.ResponseWriter, r *http.Request) {
	var req ingestJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Data) == 0 || string(req.Data) == "null" {
		s.respondError(w, http.StatusBadRequest, "data is required")
		return
	}
	var data interface{}
	if err := json.Unmarshal(req.Data, &data); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid data")
		return
	}
	s.logger.Debug("ingest json request", zap.String("source", req.Source))
	report, err := s.app.Indexer.IngestJSON(r.Context(), data, req.Source)
	if err != nil {
		s.logger.Error("ingest json failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

type ingestTextsRequest struct {
	Texts     []string                 `json:"texts"`
	Metadatas []map[string]interface{} `json:"metadatas,omitempty"`
}

func (s *Server) handleIngestTexts(w http.ResponseWriter, r *http.Request) {
	var req ingestTextsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		s.respondError(w, http.StatusBadRequest, "texts is required")
		return
	}
	if len(req.Metadatas) > 0 && len(req.Metadatas) != len(req.Texts) {
		s.respondError(w, http.StatusBadRequest, "metadatas must match texts in length")
		return
	}
	s.logger.Debug("ingest texts request", zap.Int("texts", len(req.Texts)))
	report, err := s.app.Indexer.IngestTexts(r.Context(), req.Texts, req.Metadatas)
	if err != nil {
		s.logger.Error("ingest texts failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

type ingestFilesResponse struct {
	ingest.IngestReport
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Server) handleIngestFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, "files is required")
		return
	}

	var resp ingestFilesResponse
	for _, fh := range files {
		report, err := s.ingestUpload(r, fh)
		if err != nil {
			s.logger.Warn("ingest upload failed", zap.String("file", fh.Filename), zap.Error(err))
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[fh.Filename] = err.Error()
			continue
		}
		resp.Documents += report.Documents
		resp.Chunks += report.Chunks
		resp.Stored += report.Stored
		resp.Rejected += report.Rejected
		resp.Files += report.Files
	}
	if resp.Files == 0 {
		s.respondJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

// ingestUpload copies one upload to a temp file with the same extension, ingests it
// and removes the temp file.
func (s *Server) ingestUpload(r *http.Request, fh *multipart.FileHeader) (ingest.IngestReport, error) {
	name := filepath.Base(fh.Filename)
	src, err := fh.Open()
	if err != nil {
		return ingest.IngestReport{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "lumina-upload-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return ingest.IngestReport{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	_, copyErr := io.Copy(tmp, src)
	if err := errors.Join(copyErr, tmp.Close()); err != nil {
		return ingest.IngestReport{}, fmt.Errorf("save upload: %w", err)
	}
	return s.app.Indexer.IngestUpload(r.Context(), name, tmp.Name(), s.app.Config.Ingest.Extensions)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
