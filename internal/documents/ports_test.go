package documents

import (
	"strings"
	"testing"
	"time"
)

func TestNewKey(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	a, b := NewKey(now), NewKey(now)
	if a == b {
		t.Fatalf("NewKey() returned %q twice", a)
	}
	if !strings.HasPrefix(a, "project_documents/2024/03/") || !strings.HasSuffix(a, ".pdf") {
		t.Errorf("NewKey() = %q", a)
	}
}
