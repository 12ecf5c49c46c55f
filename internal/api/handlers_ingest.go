package api

import (
	"encoding/json"
	"io"
	"net/http"
)

// uploadFormLimit bounds multipart form memory and request size. The
// per-file cap is enforced again by the ingestion service.
const uploadFormLimit = 11 << 20

type ingestURLRequest struct {
	URL string `json:"url"`
}

type ingestResponse struct {
	DocumentID    string `json:"document_id"`
	Name          string `json:"name"`
	ChunksCreated int    `json:"chunks_created"`
}

func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadFormLimit)

	if err := r.ParseMultipartForm(uploadFormLimit); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	result, err := s.ingest.IngestFile(r.Context(), TenantID(r), header.Filename, content)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		DocumentID:    result.DocumentID,
		Name:          header.Filename,
		ChunksCreated: result.ChunksCreated,
	})
}

func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.ingest.IngestURL(r.Context(), TenantID(r), req.URL)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		DocumentID:    result.DocumentID,
		Name:          req.URL,
		ChunksCreated: result.ChunksCreated,
	})
}
