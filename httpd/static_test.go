package httpd_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aufam/delameta-go/httpd"
)

func TestServeStaticRegistersFilesAndIndexAlias(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	e := httpd.NewEngine()
	if err := e.ServeStatic("/assets", dir, false); err != nil {
		t.Fatalf("ServeStatic: %v", err)
	}

	_, res := e.Execute(context.Background(), nil, []byte("GET /assets HTTP/1.1\r\n\r\n"))
	if res.Status != httpd.StatusOK {
		t.Fatalf("index alias status = %d, want 200", res.Status)
	}
	if res.Body != "<h1>hi</h1>" {
		t.Fatalf("index alias body = %q", res.Body)
	}

	_, res = e.Execute(context.Background(), nil, []byte("GET /assets/style.css HTTP/1.1\r\n\r\n"))
	if res.Status != httpd.StatusOK {
		t.Fatalf("style.css status = %d, want 200", res.Status)
	}
	if ct, _ := res.Headers.Get("Content-Type"); ct != "text/css" {
		t.Fatalf("Content-Type = %q, want text/css", ct)
	}
}
