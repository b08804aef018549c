package http

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"fintrack/internal/core"
)

// multipartMemory is how much of an upload is buffered in memory before the
// rest spills to a temporary file.
const multipartMemory = 1 << 20

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	docs, err := s.services.Documents.List(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleUploadDocument accepts a multipart form with a "file" part and an
// optional "name" field.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if tooLarge(err) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "File too large").Write(w)
			return
		}
		BadRequestError("No file provided").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("No file provided").Write(w)
		return
	}
	defer file.Close()
	if !core.IsPDFName(header.Filename) {
		BadRequestError("Only PDF files are allowed").Write(w)
		return
	}

	doc, err := s.services.Documents.Upload(r.Context(), owner, id, header.Filename, sanitizeInput(r.FormValue("name")), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, err)
		return
	}
	docID, err := strconv.ParseInt(p.Get("document_id"), 10, 64)
	if err != nil || docID <= 0 {
		NotFoundError("Document not found").Write(w)
		return
	}

	if err := s.services.Documents.Delete(r.Context(), owner, id, docID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("Document not found").Write(w)
			return
		}
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleDownloadDocument streams the stored PDF.
func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	docID, err := strconv.ParseInt(r.PathValue("document_id"), 10, 64)
	if err != nil || docID <= 0 {
		NotFoundError("Document not found").Write(w)
		return
	}

	doc, rc, err := s.services.Documents.Open(r.Context(), owner, id, docID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("Document not found").Write(w)
			return
		}
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	filename := doc.Name
	if !core.IsPDFName(filename) {
		filename += ".pdf"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if doc.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "Document download interrupted", "document_id", docID, "error", err)
	}
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
