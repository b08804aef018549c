package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/documents"
	"fintrack/internal/ledger"
)

// ErrDocumentsDisabled is returned when no file store is configured.
var ErrDocumentsDisabled = errors.New("document storage is not configured")

// DocumentService attaches PDF files to projects. The row and the stored
// file share a lifecycle: a failed insert removes the file, and deleting a
// document or its project removes the files after the rows are gone.
type DocumentService struct {
	Deps
}

func NewDocumentService(d Deps) *DocumentService {
	return &DocumentService{Deps: d}
}

// Upload stores r as a new document of the project. name defaults to the
// uploaded file name.
func (s *DocumentService) Upload(ctx context.Context, owner string, projectID int64, filename, name string, r io.Reader) (core.ProjectDocument, error) {
	if s.Files == nil {
		return core.ProjectDocument{}, ErrDocumentsDisabled
	}
	filename = path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if !core.IsPDFName(filename) {
		return core.ProjectDocument{}, core.Invalid("file", "Only PDF files are allowed")
	}
	if _, err := s.Store.Projects().Get(ctx, owner, projectID); err != nil {
		return core.ProjectDocument{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = filename
	}
	doc := core.ProjectDocument{
		ProjectID:  projectID,
		Name:       name,
		File:       documents.NewKey(s.Clock.Now()),
		UploadedBy: owner,
	}
	if err := doc.Validate(); err != nil {
		return core.ProjectDocument{}, err
	}

	n, err := s.Files.Put(ctx, doc.File, r)
	if err != nil {
		return core.ProjectDocument{}, fmt.Errorf("store document: %w", err)
	}
	doc.FileSize = n
	if err := s.Store.Documents().Create(ctx, owner, &doc); err != nil {
		s.removeFile(ctx, doc.File)
		return core.ProjectDocument{}, err
	}
	slog.InfoContext(ctx, "Project document uploaded",
		"owner_id", owner,
		"project_id", projectID,
		"document_id", doc.ID,
		"size", n)
	return doc, nil
}

// List returns the documents of one project, newest first.
func (s *DocumentService) List(ctx context.Context, owner string, projectID int64) ([]core.ProjectDocument, error) {
	if _, err := s.Store.Projects().Get(ctx, owner, projectID); err != nil {
		return nil, err
	}
	return s.Store.Documents().List(ctx, owner, ledger.DocumentFilter{ProjectID: projectID})
}

// Get returns a document only if it belongs to the project.
func (s *DocumentService) Get(ctx context.Context, owner string, projectID, id int64) (core.ProjectDocument, error) {
	doc, err := s.Store.Documents().Get(ctx, owner, id)
	if err != nil {
		return core.ProjectDocument{}, err
	}
	if doc.ProjectID != projectID {
		return core.ProjectDocument{}, core.NotFound("document", id)
	}
	return doc, nil
}

// Open returns the document and a reader over its file. The caller closes
// the reader.
func (s *DocumentService) Open(ctx context.Context, owner string, projectID, id int64) (core.ProjectDocument, io.ReadCloser, error) {
	if s.Files == nil {
		return core.ProjectDocument{}, nil, ErrDocumentsDisabled
	}
	doc, err := s.Get(ctx, owner, projectID, id)
	if err != nil {
		return core.ProjectDocument{}, nil, err
	}
	rc, err := s.Files.Open(ctx, doc.File)
	if errors.Is(err, documents.ErrNotExist) {
		slog.WarnContext(ctx, "Document file missing", "document_id", id, "file", doc.File)
		return core.ProjectDocument{}, nil, core.NotFound("document", id)
	}
	if err != nil {
		return core.ProjectDocument{}, nil, err
	}
	return doc, rc, nil
}

// Delete removes a document of the project and then its file.
func (s *DocumentService) Delete(ctx context.Context, owner string, projectID, id int64) error {
	doc, err := s.Get(ctx, owner, projectID, id)
	if err != nil {
		return err
	}
	if err := s.Store.Documents().Delete(ctx, owner, id); err != nil {
		return err
	}
	s.removeFile(ctx, doc.File)
	return nil
}

// DeleteProject removes a project, its sub-projects and every document
// attached to them, then the stored files.
func (s *DocumentService) DeleteProject(ctx context.Context, owner string, id int64) error {
	var files []string
	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Projects().Get(ctx, owner, id); err != nil {
			return err
		}
		all, err := tx.Projects().List(ctx, owner, ledger.ProjectFilter{})
		if err != nil {
			return err
		}
		children := map[int64][]int64{}
		for _, p := range all {
			if p.ParentID != nil {
				children[*p.ParentID] = append(children[*p.ParentID], p.ID)
			}
		}

		// Children before parents.
		var order []int64
		var walk func(int64)
		walk = func(pid int64) {
			for _, c := range children[pid] {
				walk(c)
			}
			order = append(order, pid)
		}
		walk(id)

		for _, pid := range order {
			docs, err := tx.Documents().List(ctx, owner, ledger.DocumentFilter{ProjectID: pid})
			if err != nil {
				return err
			}
			for _, d := range docs {
				if err := tx.Documents().Delete(ctx, owner, d.ID); err != nil {
					return err
				}
				files = append(files, d.File)
			}
			if err := tx.Projects().Delete(ctx, owner, pid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, f := range files {
		s.removeFile(ctx, f)
	}
	return nil
}

// removeFile deletes a stored file. A failure leaves an orphaned file, which
// is logged but does not fail the caller.
func (s *DocumentService) removeFile(ctx context.Context, key string) {
	if s.Files == nil {
		return
	}
	if err := s.Files.Delete(ctx, key); err != nil {
		slog.ErrorContext(ctx, "Failed to delete document file", "file", key, "error", err)
	}
}
