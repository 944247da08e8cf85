package httpd

import (
	"strconv"

	"github.com/aufam/delameta-go/stream"
)

// Response is http::ResponseWriter/ResponseReader merged (spec.md §3
// "HTTP Response").
type Response struct {
	Version      string
	Status       int
	StatusString string
	Headers      Headers
	Body         string
	BodyStream   *stream.Stream

	// Chunked requests Transfer-Encoding: chunked framing on Dump
	// instead of a Content-Length body (spec.md §4.7).
	Chunked bool
}

func NewResponse() *Response {
	return &Response{Version: "HTTP/1.1", Status: StatusOK, Headers: Headers{}, BodyStream: stream.New()}
}

// Dump finalizes status_string/Content-Length (spec.md §3: "status_
// string is derived from status if empty; Content-Length is auto-
// filled if body non-empty and no stream present") and serializes the
// message to a Stream.
func (r *Response) Dump() *stream.Stream {
	if r.StatusString == "" {
		r.StatusString = StatusText(r.Status)
	}
	if !r.Headers.Has("Server") {
		r.Headers.Set("Server", "delameta/1.0")
	}
	hasStream := r.BodyStream != nil && !r.BodyStream.Empty()
	if r.Chunked && hasStream {
		r.Headers.Set("Transfer-Encoding", "chunked")
	} else {
		if r.Body != "" && !hasStream && !r.Headers.Has("Content-Length") {
			r.Headers.Set("Content-Length", strconv.Itoa(len(r.Body)))
		}
		if r.Body == "" && !hasStream {
			r.Headers.Set("Content-Length", "0")
		}
	}

	s := stream.New()
	s.AppendString(r.Version + " " + strconv.Itoa(r.Status) + " " + r.StatusString + "\r\n")
	for k, v := range r.Headers {
		s.AppendString(k + ": " + v + "\r\n")
	}
	s.AppendString("\r\n")
	if r.Body != "" {
		s.AppendString(r.Body)
	}
	if hasStream {
		if r.Chunked {
			s.AppendStream(encodeChunked(r.BodyStream))
		} else {
			s.AppendStream(r.BodyStream)
		}
	}
	return s
}
