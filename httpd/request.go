package httpd

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/stream"
	"github.com/aufam/delameta-go/urlx"
)

// Request is the merged RequestReader/RequestWriter from the reference
// implementation (spec.md §3 "HTTP Request"): Go has no read/write-only
// view distinction worth preserving, so one struct serves both parsing
// and serialization.
type Request struct {
	Method     string
	URL        urlx.URL
	Version    string
	Headers    Headers
	Body       string
	BodyStream *stream.Stream
}

// maxHeaderChunk bounds a single read_until(n) call while draining a
// declared Content-Length, matching the reference's MAX_HANDLE_SZ
// chunking of large bodies.
const maxHeaderChunk = 4096

// ParseRequest decodes a request line, headers, and (declared) body
// out of data, re-entering desc via ReadUntil for any Content-Length
// bytes beyond what's already buffered (spec.md §4.7). Connection/
// Keep-Alive headers mutate desc's session knobs in place when desc
// supports them (spec.md §4.7 "Connection: close|keep-alive mutates
// the owning Descriptor's keep_alive").
func ParseRequest(ctx context.Context, desc descriptor.Descriptor, data []byte) *Request {
	req := &Request{Headers: Headers{}, BodyStream: stream.New()}

	text := string(data)
	firstLineEnd := indexOfAny(text, "\n")
	if firstLineEnd < 0 {
		return req
	}
	requestLine := text[:firstLineEnd]
	requestLine = strings.TrimSuffix(requestLine, "\r")
	parts := strings.SplitN(requestLine, " ", 3)
	if len(parts) < 3 {
		return req
	}
	req.Method = parts[0]
	req.URL = urlx.Parse(parts[1])
	req.Version = strings.TrimSuffix(parts[2], "\r")

	rest := text[firstLineEnd+1:]
	parseHeadersAndBody(ctx, rest, req, desc)

	if host, ok := req.Headers.Get("Host"); ok && host != "" {
		req.URL.Host = host
	}
	return req
}

func indexOfAny(s, chars string) int {
	return strings.IndexAny(s, chars)
}

func parseHeadersAndBody(ctx context.Context, rest string, req *Request, desc descriptor.Descriptor) {
	headEnd := strings.Index(rest, "\r\n\r\n")
	bodyStart := headEnd + 4
	if headEnd < 0 {
		headEnd = strings.Index(rest, "\n\n")
		bodyStart = headEnd + 2
	}
	if headEnd < 0 {
		headEnd = len(rest)
		bodyStart = len(rest)
	}

	headText := rest[:headEnd]
	var preBuffered string
	if bodyStart < len(rest) {
		preBuffered = rest[bodyStart:]
	}

	contentLengthFound := false
	connectionFound := false
	keepAliveFound := false
	chunked := false

	lines := strings.Split(headText, "\n")
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		idx := strings.Index(line, ":")
		var key, value string
		if idx < 0 {
			key = line
		} else {
			key = line[:idx]
			value = strings.TrimLeft(line[idx+1:], " ")
		}
		req.Headers[key] = value

		lower := strings.ToLower(key)
		switch {
		case !contentLengthFound && lower == "content-length":
			contentLengthFound = true
			cl, _ := strconv.Atoi(strings.TrimSpace(value))
			remaining := cl
			if remaining >= len(preBuffered) {
				remaining -= len(preBuffered)
			} else {
				remaining = 0
			}
			if len(preBuffered) > 0 {
				req.BodyStream.AppendString(preBuffered)
			}
			for remaining > 0 {
				n := remaining
				if n > maxHeaderChunk {
					n = maxHeaderChunk
				}
				req.BodyStream.AppendFunc(makeReadRule(ctx, desc, n))
				remaining -= n
			}
		case !connectionFound && lower == "connection":
			connectionFound = true
			if cc, ok := desc.(interface{ SetKeepAlive(bool) }); ok {
				switch strings.ToLower(strings.TrimSpace(value)) {
				case "keep-alive":
					cc.SetKeepAlive(true)
				case "close":
					cc.SetKeepAlive(false)
				}
			}
		case !keepAliveFound && lower == "keep-alive":
			keepAliveFound = true
			applyKeepAliveHeader(desc, value)
		case lower == "transfer-encoding" && strings.Contains(strings.ToLower(value), "chunked"):
			chunked = true
		}
	}

	if chunked {
		req.BodyStream = decodeChunked(ctx, desc)
	} else if !contentLengthFound && len(preBuffered) > 0 {
		req.BodyStream.AppendString(preBuffered)
	}
}

func makeReadRule(ctx context.Context, desc descriptor.Descriptor, n int) func() ([]byte, bool, error) {
	return func() ([]byte, bool, error) {
		b, err := desc.ReadUntil(ctx, n)
		if err != nil {
			return nil, false, err
		}
		return b, false, nil
	}
}

// Text materializes BodyStream into Body exactly once (spec.md §3
// "either body holds the full payload ... or body_stream yields the
// full payload exactly once"), mirroring convert_stream_into's
// lazy-drain-on-first-use behavior.
func (r *Request) Text() (string, error) {
	if r.Body != "" {
		return r.Body, nil
	}
	b, err := r.BodyStream.Collect()
	if err != nil {
		return "", err
	}
	r.Body = string(b)
	return r.Body, nil
}

// Dump serializes the request back into wire bytes as a Stream (spec.md
// §4.7 "Serializer produces a Stream that concatenates start-line,
// headers, empty line, then body bytes followed by body_stream
// rules").
func (r *Request) Dump() *stream.Stream {
	s := stream.New()
	s.AppendString(r.Method + " " + r.URL.FullPath + " " + r.Version + "\r\n")
	for k, v := range r.Headers {
		s.AppendString(k + ": " + v + "\r\n")
	}
	s.AppendString("\r\n")
	if r.Body != "" {
		s.AppendString(r.Body)
	}
	if r.BodyStream != nil && !r.BodyStream.Empty() {
		s.AppendStream(r.BodyStream)
	}
	return s
}

func applyKeepAliveHeader(desc descriptor.Descriptor, value string) {
	// timeout=N, max=M — parsed defensively (original allows either or
	// both tokens, any order, comma separated).
	for _, tok := range strings.Split(value, ",") {
		tok = strings.TrimSpace(tok)
		if v, ok := cutPrefix(tok, "timeout="); ok {
			if n, err := strconv.Atoi(v); err == nil {
				if ts, ok := desc.(interface{ SetTimeout(time.Duration) }); ok {
					ts.SetTimeout(time.Duration(n) * time.Second)
				}
			}
		}
		if v, ok := cutPrefix(tok, "max="); ok {
			if n, err := strconv.Atoi(v); err == nil {
				if ms, ok := desc.(interface{ SetMax(int) }); ok {
					ms.SetMax(n)
				}
			}
		}
	}
}

func cutPrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return "", false
}
