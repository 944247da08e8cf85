package httpd

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
)

// contentTypeByExt is a small extension table covering the file kinds
// a typical static bundle ships; anything unrecognized falls back to
// application/octet-stream.
var contentTypeByExt = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".ico":  "image/x-icon",
	".txt":  "text/plain",
	".wasm": "application/wasm",
}

// ContentTypeFor infers a Content-Type from name's extension, falling
// back to application/octet-stream (spec.md's file-route supplements:
// /download sets Content-Type "from the file", grounded on
// original_source/app/file_handler.cpp's
// delameta::get_content_type_from_file).
func ContentTypeFor(name string) string {
	if ct, ok := contentTypeByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ServeStatic walks root at bind time and registers one GET route per
// file under prefix, inferring Content-Type from the extension; an
// index.html at root is additionally aliased to prefix itself (spec.md
// §4.8 "serve_static(prefix, root, chunked=false)"). Walks root with
// godirwalk instead of filepath.Walk.
func (e *Engine) ServeStatic(prefix, root string, chunked bool) error {
	prefix = strings.TrimSuffix(prefix, "/")

	return godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, osPathname)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			routePath := path.Join(prefix, rel)
			if !strings.HasPrefix(routePath, "/") {
				routePath = "/" + routePath
			}
			e.registerStaticFile(routePath, osPathname, chunked)
			if rel == "index.html" {
				indexPath := prefix
				if indexPath == "" {
					indexPath = "/"
				}
				e.registerStaticFile(indexPath, osPathname, chunked)
			}
			return nil
		},
		Unsorted: true,
	})
}

func (e *Engine) registerStaticFile(routePath, osPathname string, chunked bool) {
	contentType := ContentTypeFor(osPathname)
	e.Get(routePath, nil, func() (*Response, error) {
		data, err := os.ReadFile(osPathname)
		if err != nil {
			return nil, InternalError(err)
		}
		res := NewResponse()
		res.Headers.Set("Content-Type", contentType)
		res.Chunked = chunked
		if chunked {
			res.BodyStream.AppendBytes(data)
		} else {
			res.Body = string(data)
		}
		return res, nil
	})
}
