package httpd

import (
	"reflect"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Extractor produces one positional handler argument from the request/
// response pair (spec.md §4.8 "each route declares a tuple of extractor
// specs paired with a handler function whose parameters line up
// positionally"). reflect.Value lets one Extractor slice drive handler
// functions of any arity/signature via reflect.Call in Route.
type Extractor func(req *Request, res *Response, ctx *Context) (reflect.Value, error)

// Arg looks up name in headers, then query parameters (spec.md §4.8
// "arg(name): header or query (in that order)"); missing is a 400.
func Arg(name string) Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) {
		if v, ok := req.Headers.Get(name); ok {
			return reflect.ValueOf(v), nil
		}
		if v, ok := req.URL.Queries[name]; ok {
			return reflect.ValueOf(v), nil
		}
		return reflect.Value{}, NewError(StatusBadRequest, "arg '%s' not found", name)
	}
}

// DefaultVal is Arg with a fallback instead of a 400.
func DefaultVal(name string, def string) Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) {
		if v, ok := req.Headers.Get(name); ok {
			return reflect.ValueOf(v), nil
		}
		if v, ok := req.URL.Queries[name]; ok {
			return reflect.ValueOf(v), nil
		}
		return reflect.ValueOf(def), nil
	}
}

// DefaultFn is Arg with a computed fallback; fn's error propagates
// (spec.md §4.8 "default_fn(name, fn): as above, else call fn(req,res)").
func DefaultFn(name string, fn func(req *Request, res *Response) (string, error)) Extractor {
	return func(req *Request, res *Response, _ *Context) (reflect.Value, error) {
		if v, ok := req.Headers.Get(name); ok {
			return reflect.ValueOf(v), nil
		}
		if v, ok := req.URL.Queries[name]; ok {
			return reflect.ValueOf(v), nil
		}
		v, err := fn(req, res)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	}
}

// JSONItem reads one key out of the parsed JSON body (spec.md §4.8
// "json_item(key): one key of JSON body").
func JSONItem(key string) Extractor {
	return func(_ *Request, _ *Response, ctx *Context) (reflect.Value, error) {
		if ctx.Kind != ContextJSON {
			return reflect.Value{}, NewError(StatusBadRequest, "Content-Type is not json")
		}
		v, ok := ctx.JSONBody[key]
		if !ok {
			return reflect.Value{}, NewError(StatusBadRequest, "key '%s' not found", key)
		}
		return reflect.ValueOf(v), nil
	}
}

func JSONItemDefaultVal(key string, def any) Extractor {
	return func(_ *Request, _ *Response, ctx *Context) (reflect.Value, error) {
		if ctx.Kind != ContextJSON {
			return reflect.Value{}, NewError(StatusBadRequest, "Content-Type is not json")
		}
		if v, ok := ctx.JSONBody[key]; ok {
			return reflect.ValueOf(v), nil
		}
		return reflect.ValueOf(def), nil
	}
}

func JSONItemDefaultFn(key string, fn func(req *Request, res *Response) (any, error)) Extractor {
	return func(req *Request, res *Response, ctx *Context) (reflect.Value, error) {
		if ctx.Kind != ContextJSON {
			return reflect.Value{}, NewError(StatusBadRequest, "Content-Type is not json")
		}
		if v, ok := ctx.JSONBody[key]; ok {
			return reflect.ValueOf(v), nil
		}
		v, err := fn(req, res)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	}
}

// Form reads one key out of a parsed application/x-www-form-urlencoded
// body (spec.md §4.8 "form(key)").
func Form(key string) Extractor {
	return func(_ *Request, _ *Response, ctx *Context) (reflect.Value, error) {
		if ctx.Kind != ContextForm {
			return reflect.Value{}, NewError(StatusBadRequest, "Content-Type is not url-encoded")
		}
		v, ok := ctx.FormBody[key]
		if !ok {
			return reflect.Value{}, NewError(StatusBadRequest, "key '%s' not found", key)
		}
		return reflect.ValueOf(v), nil
	}
}

// Depends runs an arbitrary user function for its side effect and/or
// return value (spec.md §4.8 "depends(fn): arbitrary user function").
func Depends(fn func(req *Request, res *Response) (any, error)) Extractor {
	return func(req *Request, res *Response, _ *Context) (reflect.Value, error) {
		v, err := fn(req, res)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	}
}

func RequestArg() Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) { return reflect.ValueOf(req), nil }
}

func ResponseArg() Extractor {
	return func(_ *Request, res *Response, _ *Context) (reflect.Value, error) { return reflect.ValueOf(res), nil }
}

func URLArg() Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) { return reflect.ValueOf(req.URL), nil }
}

func HeadersArg() Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) { return reflect.ValueOf(req.Headers), nil }
}

func QueriesArg() Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) { return reflect.ValueOf(req.URL.Queries), nil }
}

func PathArg() Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) { return reflect.ValueOf(req.URL.Path), nil }
}

func FullPathArg() Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) { return reflect.ValueOf(req.URL.FullPath), nil }
}

func FragmentArg() Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) { return reflect.ValueOf(req.URL.Fragment), nil }
}

func VersionArg() Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) { return reflect.ValueOf(req.Version), nil }
}

func MethodArg() Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) { return reflect.ValueOf(req.Method), nil }
}

// Body materializes and returns the full request body as a string
// (spec.md §4.8 "body: the named request/response field").
func Body() Extractor {
	return func(req *Request, _ *Response, _ *Context) (reflect.Value, error) {
		text, err := req.Text()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(text), nil
	}
}

// JSON decodes the whole request body as JSON into dest's type via out
// (spec.md §4.8 "json: the named request/response field (or body
// deserialized)"). out is a pointer to a zero value of the desired
// type; JSON() returns the dereferenced decoded value.
func JSON(out any) Extractor {
	return func(_ *Request, _ *Response, ctx *Context) (reflect.Value, error) {
		if ctx.Kind != ContextJSON {
			return reflect.Value{}, NewError(StatusBadRequest, "Content-Type is not json")
		}
		b, err := jsonAPI.Marshal(ctx.JSONBody)
		if err != nil {
			return reflect.Value{}, InternalError(err)
		}
		target := reflect.New(reflect.TypeOf(out).Elem())
		if err := jsonAPI.Unmarshal(b, target.Interface()); err != nil {
			return reflect.Value{}, NewError(StatusBadRequest, "%s", err.Error())
		}
		return target.Elem(), nil
	}
}

// Text returns the body only when Content-Type is text/plain (spec.md
// §4.8 "text: content-type mismatches yield 400").
func Text() Extractor {
	return func(req *Request, _ *Response, ctx *Context) (reflect.Value, error) {
		if !ctx.contentTypeStartsWith("text/plain") {
			return reflect.Value{}, NewError(StatusBadRequest, "Content-Type is not text/plain")
		}
		text, err := req.Text()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(text), nil
	}
}

func parseIntArg(v string) (int, error) { return strconv.Atoi(v) }
