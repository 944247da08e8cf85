package main

import (
	"os"
	"sort"

	"github.com/aufam/delameta-go/httpd"
)

// registerFileRoutes wires /ls, /file_size, /download, /upload and the
// runtime /route_file registrar onto e (spec.md §6 persisted-state
// surface, supplemented from original_source/app/file_handler.cpp).
func registerFileRoutes(e *httpd.Engine) {
	e.Get("/ls", []httpd.Extractor{httpd.Arg("path")}, listDir)
	e.Get("/file_size", []httpd.Extractor{httpd.Arg("filename")}, fileSize)
	e.Get("/download", []httpd.Extractor{httpd.Arg("filename"), httpd.ResponseArg()}, download)
	e.Put("/upload", []httpd.Extractor{httpd.Arg("filename"), httpd.Body()}, upload)
	e.Post("/route_file", []httpd.Extractor{httpd.Arg("path"), httpd.Arg("filename")}, routeFile(e))
	e.Post("/delete_route", []httpd.Extractor{httpd.Arg("path")}, deleteRoute(e))
}

func listDir(path string) (any, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, httpd.NewError(httpd.StatusBadRequest, "`%s` is not a directory", path)
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		names = append(names, ent.Name())
	}
	sort.Strings(names)
	return names, nil
}

func fileSize(filename string) (any, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, httpd.InternalError(err)
	}
	return info.Size(), nil
}

func download(filename string, res *httpd.Response) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return httpd.InternalError(err)
	}
	res.Headers.Set("Content-Type", httpd.ContentTypeFor(filename))
	res.BodyStream.AppendBytes(data)
	return nil
}

func upload(filename, body string) error {
	if err := os.WriteFile(filename, []byte(body), 0o644); err != nil {
		return httpd.InternalError(err)
	}
	return nil
}

// routeFile registers a GET/PUT pair at path proxying filename,
// matching original_source's route_file (download on GET, upload on
// PUT).
func routeFile(e *httpd.Engine) func(path, filename string) error {
	return func(path, filename string) error {
		if ok, _ := e.HasRoute(path); ok {
			return httpd.NewError(httpd.StatusConflict, "path %s is already exist", path)
		}
		e.Route(path, []string{"GET", "PUT"}, []httpd.Extractor{
			httpd.MethodArg(), httpd.Body(), httpd.ResponseArg(),
		}, func(method, body string, res *httpd.Response) error {
			if method == "GET" {
				return download(filename, res)
			}
			return upload(filename, body)
		})
		return nil
	}
}

func deleteRoute(e *httpd.Engine) func(path string) error {
	return func(path string) error {
		if !e.DeleteRoute(path) {
			return httpd.NewError(httpd.StatusNotFound, "path %s is not found", path)
		}
		return nil
	}
}
