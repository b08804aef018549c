package gcs

import (
	"context"
	"testing"

	"google.golang.org/api/option"
)

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{Bucket: " "})
	if err == nil || err.Error() != "missing bucket name" {
		t.Fatalf("err = %v", err)
	}
}

func TestNewWithoutAuthentication(t *testing.T) {
	s, err := New(context.Background(), Config{
		Bucket:  "fintrack-documents",
		Options: []option.ClientOption{option.WithoutAuthentication()},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
