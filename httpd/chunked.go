package httpd

import (
	"context"
	"strconv"
	"strings"

	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/stream"
)

// encodeChunked stream-wraps input, emitting "HEXLEN\r\nchunk\r\n"
// segments and a final "0\r\n\r\n" (spec.md §4.7 "Chunked encoding
// stream-wraps a producer: on each pull it reads a chunk from the
// source stream and emits HEX_LEN CRLF chunk CRLF"). input.Drain
// already calls its sink once per pulled chunk, so a background
// goroutine pumps those chunks through a channel and the returned
// Stream's rule re-frames each one as it arrives, preserving the
// "one source pull -> one wire chunk" laziness instead of buffering
// the whole body up front.
func encodeChunked(input *stream.Stream) *stream.Stream {
	chunks := make(chan []byte)
	drainErr := make(chan error, 1)
	go func() {
		err := input.Drain(func(b []byte) error {
			cp := make([]byte, len(b))
			copy(cp, b)
			chunks <- cp
			return nil
		})
		close(chunks)
		drainErr <- err
	}()

	s := stream.New()
	terminated := false
	s.AppendFunc(func() ([]byte, bool, error) {
		if terminated {
			return nil, false, nil
		}
		chunk, ok := <-chunks
		if !ok {
			terminated = true
			if err := <-drainErr; err != nil {
				return nil, false, err
			}
			return []byte("0\r\n\r\n"), false, nil
		}
		var out []byte
		out = append(out, []byte(strconv.FormatInt(int64(len(chunk)), 16))...)
		out = append(out, "\r\n"...)
		out = append(out, chunk...)
		out = append(out, "\r\n"...)
		return out, true, nil
	})
	return s
}

// decodeChunked reads hex-length/line/body/line pairs from desc until
// a zero-length chunk terminates the stream (spec.md §4.7, grounded on
// original_source/src/http/chunked.cpp's chunked_decode).
func decodeChunked(ctx context.Context, desc descriptor.Descriptor) *stream.Stream {
	s := stream.New()
	s.AppendFunc(func() ([]byte, bool, error) {
		sizeLine, err := readLine(ctx, desc)
		if err != nil {
			return nil, false, err
		}
		sizeLine = strings.TrimSpace(sizeLine)
		n, err := strconv.ParseInt(sizeLine, 16, 64)
		if err != nil || n <= 0 {
			return nil, false, nil
		}
		chunk, err := desc.ReadUntil(ctx, int(n))
		if err != nil {
			return nil, false, err
		}
		if _, err := readLine(ctx, desc); err != nil {
			return nil, false, err
		}
		return chunk, true, nil
	})
	return s
}

func readLine(ctx context.Context, desc descriptor.Descriptor) (string, error) {
	var buf []byte
	for {
		b, err := desc.ReadUntil(ctx, 1)
		if err != nil {
			return "", err
		}
		if b[0] == '\n' {
			break
		}
		buf = append(buf, b[0])
	}
	if len(buf) > 0 && buf[len(buf)-1] == '\r' {
		buf = buf[:len(buf)-1]
	}
	return string(buf), nil
}
