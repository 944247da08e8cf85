package httpd

import (
	"net/url"
	"strings"
)

// Context is per-request scratch state computed once before extractors
// run (spec.md §4.8, grounded on http::Http::Context): the declared
// Content-Type and, when recognized, the decoded JSON or form body.
type Context struct {
	ContentType string
	JSONBody    map[string]any
	FormBody    map[string]string
	Kind        ContextKind
}

type ContextKind int

const (
	ContextAny ContextKind = iota
	ContextJSON
	ContextForm
)

// NewContext inspects req's Content-Type and eagerly materializes the
// body for JSON/form requests (spec.md: "if req.body.empty() ...
// body_stream >> ...; json = Json::parse(...)").
func NewContext(req *Request, jsonUnmarshal func([]byte, any) error) (*Context, error) {
	ctx := &Context{}
	ct, _ := req.Headers.Get("Content-Type")
	ctx.ContentType = ct

	switch {
	case strings.HasPrefix(ct, "application/json"):
		ctx.Kind = ContextJSON
		text, err := req.Text()
		if err != nil {
			return nil, err
		}
		if text != "" {
			m := map[string]any{}
			if err := jsonUnmarshal([]byte(text), &m); err != nil {
				return nil, NewError(StatusBadRequest, "%s", err.Error())
			}
			ctx.JSONBody = m
		}
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		ctx.Kind = ContextForm
		text, err := req.Text()
		if err != nil {
			return nil, err
		}
		values, err := url.ParseQuery(text)
		if err != nil {
			return nil, NewError(StatusBadRequest, "%s", err.Error())
		}
		form := map[string]string{}
		for k := range values {
			form[k] = values.Get(k)
		}
		ctx.FormBody = form
	}
	return ctx, nil
}

func (c *Context) contentTypeStartsWith(prefix string) bool {
	return strings.HasPrefix(c.ContentType, prefix)
}
