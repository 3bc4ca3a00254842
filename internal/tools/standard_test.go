package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestStandardReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.txt")
	if err := os.WriteFile(path, []byte("widgets were invented in 1922"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := Standard().Call(context.Background(), "read_file", map[string]any{"path": path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "widgets were invented in 1922" {
		t.Errorf("content = %q", out)
	}
}

func TestStandardReadFileMissing(t *testing.T) {
	_, err := Standard().Call(context.Background(), "read_file",
		map[string]any{"path": filepath.Join(t.TempDir(), "absent.txt")})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestStandardHTTPGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "claim confirmed")
	}))
	defer srv.Close()

	out, err := Standard().Call(context.Background(), "http_get", map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "claim confirmed" {
		t.Errorf("body = %q", out)
	}
}

func TestStandardHTTPGetErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Standard().Call(context.Background(), "http_get", map[string]any{"url": srv.URL}); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestStandardValidatesArgs(t *testing.T) {
	_, err := Standard().Call(context.Background(), "read_file", map[string]any{})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}
