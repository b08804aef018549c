package http

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/middleware/auth"
)

func (ts *testServer) upload(projectID int64, filename, name string, content []byte) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if name != "" {
		if err := mw.WriteField("name", name); err != nil {
			ts.t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			ts.t.Fatal(err)
		}
		fw.Write(content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/upload_document", projectID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(auth.HeaderUserID, testOwner)
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createProject(name string) int64 {
	ts.t.Helper()
	p := ts.expect(ts.do("POST", "/api/v1/projects", map[string]any{
		"name": name, "budget": "5000", "start_date": "2024-03-01",
	}), http.StatusCreated)
	return idOf(ts.t, p)
}

func TestProjectDocumentLifecycle(t *testing.T) {
	ts := newTestServer(t)
	pid := ts.createProject("Kitchen")

	doc := ts.expect(ts.upload(pid, "quote.pdf", "Contractor quote", []byte("%PDF-1.4 quote")), http.StatusCreated)
	if doc["name"] != "Contractor quote" || doc["file_size"] != float64(14) || doc["uploaded_by"] != testOwner {
		t.Errorf("uploaded document = %v", doc)
	}
	docID := idOf(t, doc)

	project := ts.expect(ts.do("GET", fmt.Sprintf("/api/v1/projects/%d", pid), nil), http.StatusOK)
	if docs, _ := project["documents"].([]any); len(docs) != 1 {
		t.Errorf("project documents = %v", project["documents"])
	}
	if list := ts.expectList(ts.do("GET", fmt.Sprintf("/api/v1/projects/%d/documents", pid), nil)); len(list) != 1 {
		t.Errorf("document list = %v", list)
	}

	rec := ts.do("GET", fmt.Sprintf("/api/v1/projects/%d/documents/%d/file", pid, docID), nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("download = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if body, _ := io.ReadAll(rec.Body); string(body) != "%PDF-1.4 quote" {
		t.Errorf("downloaded %q", body)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Contractor quote.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rec = ts.do("DELETE", fmt.Sprintf("/api/v1/projects/%d/delete_document", pid), map[string]any{"document_id": docID})
	ts.expect(rec, http.StatusNoContent)

	body := ts.expect(ts.do("DELETE", fmt.Sprintf("/api/v1/projects/%d/delete_document", pid), map[string]any{"document_id": docID}), http.StatusNotFound)
	if body["error"] != "Document not found" {
		t.Errorf("error = %v", body["error"])
	}
	ts.expect(ts.do("GET", fmt.Sprintf("/api/v1/projects/%d/documents/%d/file", pid, docID), nil), http.StatusNotFound)
}

func TestUploadDocumentValidation(t *testing.T) {
	ts := newTestServer(t)
	pid := ts.createProject("Kitchen")

	tests := []struct {
		name     string
		filename string
		wantMsg  string
	}{
		{"missing file", "", "No file provided"},
		{"text file", "notes.txt", "Only PDF files are allowed"},
		{"disguised extension", "invoice.pdf.exe", "Only PDF files are allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ts.expect(ts.upload(pid, tt.filename, "", []byte("data")), http.StatusBadRequest)
			if body["error"] != tt.wantMsg {
				t.Errorf("error = %v, want %q", body["error"], tt.wantMsg)
			}
		})
	}

	body := ts.expect(ts.do("POST", fmt.Sprintf("/api/v1/projects/%d/upload_document", pid), map[string]any{"file": "x"}), http.StatusBadRequest)
	if body["error"] != "No file provided" {
		t.Errorf("JSON upload error = %v", body["error"])
	}

	ts.expect(ts.upload(9999, "quote.pdf", "", []byte("%PDF")), http.StatusNotFound)
}

func TestUploadDocumentTooLarge(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.MaxUploadBytes = 1024 })
	pid := ts.createProject("Kitchen")

	ts.expect(ts.upload(pid, "big.pdf", "", bytes.Repeat([]byte("a"), 4096)), http.StatusRequestEntityTooLarge)
	if list := ts.expectList(ts.do("GET", fmt.Sprintf("/api/v1/projects/%d/documents", pid), nil)); len(list) != 0 {
		t.Errorf("documents after rejected upload = %v", list)
	}
}

func TestDeleteProjectRemovesItsDocuments(t *testing.T) {
	ts := newTestServer(t)
	pid := ts.createProject("Kitchen")
	docID := idOf(t, ts.expect(ts.upload(pid, "quote.pdf", "", []byte("%PDF")), http.StatusCreated))

	ts.expect(ts.do("DELETE", fmt.Sprintf("/api/v1/projects/%d", pid), nil), http.StatusNoContent)
	ts.expect(ts.do("GET", fmt.Sprintf("/api/v1/projects/%d/documents/%d/file", pid, docID), nil), http.StatusNotFound)
	ts.expect(ts.do("GET", fmt.Sprintf("/api/v1/projects/%d/documents", pid), nil), http.StatusNotFound)
}
