package documents

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "invoice.pdf", "invoice.pdf"},
		{"path stripped", "/tmp/uploads/invoice.pdf", "invoice.pdf"},
		{"traversal stripped", "../../etc/passwd", "passwd"},
		{"empty", "", "document"},
		{"dot", ".", "document"},
		{"spaces escaped", "my invoice.pdf", "my%20invoice.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuildStorageKey(t *testing.T) {
	id := uuid.New()
	key := buildStorageKey(id, "invoice.pdf")

	if !strings.HasPrefix(key, "documents/") {
		t.Errorf("key %q should be under documents/", key)
	}
	if !strings.Contains(key, id.String()) {
		t.Errorf("key %q should contain the document id", key)
	}
	if !strings.HasSuffix(key, "/invoice.pdf") {
		t.Errorf("key %q should end with the filename", key)
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name   string
		header string
		data   []byte
		want   string
	}{
		{"explicit header wins", "application/pdf", []byte("plain text"), "application/pdf"},
		{"octet-stream sniffed", "application/octet-stream", []byte("%PDF-1.7 sample"), "application/pdf"},
		{"empty header sniffed", "", []byte("%PDF-1.7 sample"), "application/pdf"},
		{"whitespace header sniffed", "  ", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectContentType(tt.header, tt.data); got != tt.want {
				t.Errorf("detectContentType = %q, want %q", got, tt.want)
			}
		})
	}
}
