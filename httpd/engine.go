package httpd

import (
	"context"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/aufam/delameta-go/cmn/nlog"
	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/session"
	"github.com/aufam/delameta-go/stream"
)

// Route is one registered handler (spec.md §3 "Route: {path, methods,
// handler}").
type Route struct {
	Path    string
	Methods map[string]bool
	fn      func(req *Request, res *Response)
}

// Precondition runs before every route's extractors; an error
// short-circuits straight to the error handler (spec.md §4.8
// "Preconditions").
type Precondition func(req *Request, res *Response) error

// Engine is C8: the route table plus declarative extraction (spec.md
// §4.8), grounded on http::Http in
// original_source/include/delameta/http/http.h.
//
// routesMu guards Routes against the runtime route-list mutation
// hazard spec.md §9 calls out (CLI-driven route_file/delete_route):
// handlers only ever read the slice while dispatching, and Route/
// DeleteRoute take the write lock, so the acknowledged hazard becomes
// an ordinary reader/writer race instead of a data race.
type Engine struct {
	Routes           []*Route
	routesMu         sync.RWMutex
	GlobalHeaders    map[string]func(req *Request, res *Response) string
	Preconditions    []Precondition
	ErrorHandler     func(err *Error, req *Request, res *Response)
	Logger           func(peer string, req *Request, res *Response)
	ShowResponseTime bool
}

func NewEngine() *Engine {
	return &Engine{
		GlobalHeaders: map[string]func(req *Request, res *Response) string{},
		ErrorHandler:  defaultErrorHandler,
	}
}

func defaultErrorHandler(err *Error, _ *Request, res *Response) {
	res.Status = err.Status
	res.Body = err.Message
	if err.Status == StatusInternalServerError && err.Cause() != nil {
		nlog.Errorf("httpd: %+v", err.Cause())
	}
}

// Route registers a handler under path/methods with a positional
// extractor tuple (spec.md §4.8). handler may return nothing, one
// value, or (value, error); the error variant's non-nil error is
// routed through ErrorHandler exactly like an extractor failure
// (spec.md §4.8 "Result<T,Error>: on Err invokes error_handler").
func (e *Engine) Route(path string, methods []string, extractors []Extractor, handler any) {
	methodSet := map[string]bool{}
	for _, m := range methods {
		methodSet[m] = true
	}
	hv := reflect.ValueOf(handler)
	route := &Route{
		Path:    path,
		Methods: methodSet,
		fn: func(req *Request, res *Response) {
			for _, pre := range e.Preconditions {
				if err := pre(req, res); err != nil {
					e.ErrorHandler(AsError(err), req, res)
					return
				}
			}

			ctx, err := NewContext(req, jsonAPI.Unmarshal)
			if err != nil {
				e.ErrorHandler(AsError(err), req, res)
				return
			}

			args := make([]reflect.Value, len(extractors))
			for i, ext := range extractors {
				v, err := ext(req, res, ctx)
				if err != nil {
					e.ErrorHandler(AsError(err), req, res)
					return
				}
				args[i] = v
			}

			out := hv.Call(args)
			e.processResult(out, req, res)
		},
	}
	e.routesMu.Lock()
	e.Routes = append(e.Routes, route)
	e.routesMu.Unlock()
}

// DeleteRoute removes every registered route matching path (spec.md §6
// "/delete_route", §9 route-list mutation hazard). Reports whether any
// route was removed.
func (e *Engine) DeleteRoute(path string) bool {
	e.routesMu.Lock()
	defer e.routesMu.Unlock()
	kept := e.Routes[:0:0]
	removed := false
	for _, r := range e.Routes {
		if r.Path == path {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	e.Routes = kept
	return removed
}

func (e *Engine) Get(path string, extractors []Extractor, handler any) {
	e.Route(path, []string{"GET"}, extractors, handler)
}
func (e *Engine) Post(path string, extractors []Extractor, handler any) {
	e.Route(path, []string{"POST"}, extractors, handler)
}
func (e *Engine) Put(path string, extractors []Extractor, handler any) {
	e.Route(path, []string{"PUT"}, extractors, handler)
}
func (e *Engine) Patch(path string, extractors []Extractor, handler any) {
	e.Route(path, []string{"PATCH"}, extractors, handler)
}
func (e *Engine) Delete(path string, extractors []Extractor, handler any) {
	e.Route(path, []string{"DELETE"}, extractors, handler)
}
func (e *Engine) Head(path string, extractors []Extractor, handler any) {
	e.Route(path, []string{"HEAD"}, extractors, handler)
}
func (e *Engine) Options(path string, extractors []Extractor, handler any) {
	e.Route(path, []string{"OPTIONS"}, extractors, handler)
}

// processResult serializes a handler's return values into res by type
// (spec.md §4.8 return-type table).
func (e *Engine) processResult(out []reflect.Value, req *Request, res *Response) {
	if len(out) == 0 {
		return
	}
	// (value, error) convention: propagate a non-nil trailing error.
	if len(out) == 2 {
		if errVal, ok := out[1].Interface().(error); ok && errVal != nil {
			e.ErrorHandler(AsError(errVal), req, res)
			return
		}
		out = out[:1]
	} else if len(out) == 1 {
		if errVal, ok := out[0].Interface().(error); ok {
			if errVal != nil {
				e.ErrorHandler(AsError(errVal), req, res)
			}
			return
		}
	}
	if len(out) != 1 {
		return
	}
	result := out[0].Interface()
	applyResult(result, res)
}

func applyResult(result any, res *Response) {
	switch v := result.(type) {
	case string:
		res.Body = v
		if !res.Headers.Has("Content-Type") {
			res.Headers.Set("Content-Type", "text/plain")
		}
	case []byte:
		res.BodyStream.AppendBytes(v)
		if !res.Headers.Has("Content-Type") {
			res.Headers.Set("Content-Type", "application/octet-stream")
		}
	case *stream.Stream:
		res.BodyStream = v
	case *Response:
		*res = *v
	case nil:
		return
	default:
		rv := reflect.ValueOf(result)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			res.Body = formatNumber(rv)
			if !res.Headers.Has("Content-Type") {
				res.Headers.Set("Content-Type", "text/plain")
			}
			return
		}
		b, err := jsonAPI.Marshal(result)
		if err != nil {
			res.Status = StatusInternalServerError
			res.Body = err.Error()
			return
		}
		if !res.Headers.Has("Content-Type") {
			res.Headers.Set("Content-Type", "application/json")
		}
		res.Body = string(b)
	}
}

func formatNumber(rv reflect.Value) string {
	switch {
	case rv.CanInt():
		return strconv.FormatInt(rv.Int(), 10)
	case rv.CanUint():
		return strconv.FormatUint(rv.Uint(), 10)
	case rv.CanFloat():
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	default:
		return ""
	}
}

// HasRoute reports whether path is already registered and, if so, its
// declared methods (spec.md §6 "/route_file": "path already exists" is
// a 409, so callers must be able to check before registering).
func (e *Engine) HasRoute(path string) (bool, []string) {
	e.routesMu.RLock()
	defer e.routesMu.RUnlock()
	for _, r := range e.Routes {
		if r.Path != path {
			continue
		}
		methods := make([]string, 0, len(r.Methods))
		for m := range r.Methods {
			methods = append(methods, m)
		}
		return true, methods
	}
	return false, nil
}

// Reroute dispatches path's registered handler against req/res (spec.md
// §4.8 "reroute(path, req, res): looks up another registered path and
// dispatches its handler with the current req/res").
func (e *Engine) Reroute(path string, req *Request, res *Response) error {
	fn := e.lookupRoute(path, "")
	if fn == nil {
		return NewError(StatusNotFound, "path %s is not found", path)
	}
	fn(req, res)
	return nil
}

// lookupRoute returns path's registered handler regardless of method,
// for Reroute (spec.md §4.8 "reroute... dispatches its handler with
// the current req/res").
func (e *Engine) lookupRoute(path, _ string) func(req *Request, res *Response) {
	e.routesMu.RLock()
	defer e.routesMu.RUnlock()
	for _, r := range e.Routes {
		if r.Path == path {
			return r.fn
		}
	}
	return nil
}

// matchRoute reports whether path is registered at all, and the
// handler to call when method is also accepted (spec.md §4.8
// "unmatched method -> 405, unmatched path -> 404").
func (e *Engine) matchRoute(path, method string) (matchedPath bool, fn func(req *Request, res *Response)) {
	e.routesMu.RLock()
	defer e.routesMu.RUnlock()
	for _, r := range e.Routes {
		if r.Path != path {
			continue
		}
		matchedPath = true
		if r.Methods[method] {
			fn = r.fn
		}
		return
	}
	return
}

// Execute is the pure data-in/request-response-out half of the engine
// (spec.md §9 "execute_stream_session vs execute duality... it makes
// the engine testable without any I/O"): routing, dispatch, and the
// response-shaping steps common to every request, independent of any
// session server.
func (e *Engine) Execute(ctx context.Context, desc descriptor.Descriptor, data []byte) (*Request, *Response) {
	start := time.Now()
	req := ParseRequest(ctx, desc, data)
	res := NewResponse()
	res.Version = req.Version

	matchedPath, fn := e.matchRoute(req.URL.Path, req.Method)
	switch {
	case fn != nil:
		res.Status = StatusOK
		fn(req, res)
	case matchedPath:
		res.Status = StatusMethodNotAllowed
	default:
		res.Status = StatusNotFound
	}

	for key, headerFn := range e.GlobalHeaders {
		if v := headerFn(req, res); v != "" {
			res.Headers.Set(key, v)
		}
	}
	if e.ShowResponseTime {
		res.Headers.Set("X-Response-Time", strconv.FormatInt(time.Since(start).Milliseconds(), 10)+"ms")
	}
	return req, res
}

// Bind installs Execute as a session.FramingHandler (spec.md §4.5
// "Framing handler contract", §4.8 "execute_stream_session... wraps
// [execute] for the session server"). When desc is a TCP/TLS
// connection, Connection/Keep-Alive header handling already happened
// inside ParseRequest via the descriptor's SetKeepAlive/SetTimeout/
// SetMax methods.
func (e *Engine) Bind() session.FramingHandler {
	return func(ctx context.Context, desc descriptor.Descriptor, peer string, frame []byte) (*stream.Stream, error) {
		req, res := e.Execute(ctx, desc, frame)
		if e.Logger != nil {
			e.Logger(peer, req, res)
		}
		return res.Dump(), nil
	}
}
