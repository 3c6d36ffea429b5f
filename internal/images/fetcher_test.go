package images

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shot.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png-bytes"))
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html>"))
		case "/huge":
			_, _ = w.Write(bytes.Repeat([]byte{0}, MaxSize))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher()

	data, mimeType, err := f.Download(t.Context(), srv.URL+"/shot.png")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(data) != "png-bytes" || mimeType != "image/png" {
		t.Errorf("Unexpected result %q %q", data, mimeType)
	}

	_, mimeType, err = f.Download(t.Context(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if mimeType != "" {
		t.Errorf("Expected non-image content type to be dropped, got %q", mimeType)
	}

	if _, _, err := f.Download(t.Context(), srv.URL+"/missing"); err == nil {
		t.Error("Expected error for 404")
	}

	if _, _, err := f.Download(t.Context(), srv.URL+"/huge"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	data, mimeType, err := NewFetcher().Load(t.Context(), path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(data) != "jpeg-bytes" || mimeType != "" {
		t.Errorf("Unexpected result %q %q", data, mimeType)
	}

	if _, _, err := NewFetcher().Load(t.Context(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestIsURL(t *testing.T) {
	tests := map[string]bool{
		"https://example.com/a.png": true,
		"http://example.com/a.png":  true,
		"./a.png":                   false,
		"/tmp/https.png":            false,
	}
	for in, want := range tests {
		if got := IsURL(in); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}
