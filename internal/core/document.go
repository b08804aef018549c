package core

import (
	"path"
	"strings"
	"time"
)

// ProjectDocument is a PDF attached to a project. File is the key its content
// is stored under in the document blob store.
type ProjectDocument struct {
	ID         int64     `json:"id"`
	OwnerID    string    `json:"-"`
	ProjectID  int64     `json:"project"`
	Name       string    `json:"name"`
	File       string    `json:"file"`
	FileSize   int64     `json:"file_size"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// IsPDFName reports whether a file name carries the .pdf extension.
func IsPDFName(name string) bool {
	return strings.EqualFold(path.Ext(strings.TrimSpace(name)), ".pdf")
}

func (d ProjectDocument) Validate() error {
	if d.ProjectID == 0 {
		return Invalid("project", "this field is required")
	}
	if err := requireText("name", d.Name, 255); err != nil {
		return err
	}
	if !IsPDFName(d.File) {
		return Invalid("file", "Only PDF files are allowed")
	}
	if d.FileSize < 0 {
		return Invalid("file_size", "must not be negative")
	}
	return nil
}
