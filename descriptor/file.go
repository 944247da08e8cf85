package descriptor

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/aufam/delameta-go/cmn/xerr"
	"github.com/aufam/delameta-go/stream"
)

// FileMode maps the endpoint factory's mode= query param (spec.md §4.4)
// to os.OpenFile flags.
type FileMode int

const (
	ModeRead FileMode = iota
	ModeWrite
	ModeWriteAppend
	ModeReadWrite
	ModeReadWriteAppend
)

func ParseFileMode(s string) (FileMode, error) {
	switch s {
	case "r", "":
		return ModeRead, nil
	case "w":
		return ModeWrite, nil
	case "wa":
		return ModeWriteAppend, nil
	case "rw":
		return ModeReadWrite, nil
	case "rwa":
		return ModeReadWriteAppend, nil
	default:
		return 0, xerr.New(xerr.CodeUsage, "file: invalid mode %q", s)
	}
}

func (m FileMode) flags() int {
	switch m {
	case ModeWrite:
		return os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	case ModeWriteAppend:
		return os.O_CREATE | os.O_WRONLY | os.O_APPEND
	case ModeReadWrite:
		return os.O_CREATE | os.O_RDWR | os.O_TRUNC
	case ModeReadWriteAppend:
		return os.O_CREATE | os.O_RDWR | os.O_APPEND
	default:
		return os.O_RDONLY
	}
}

// File wraps a plain file handle (spec.md §4.3 "File" variant).
type File struct {
	f *os.File
}

func OpenFile(path string, mode FileMode) (*File, error) {
	f, err := os.OpenFile(path, mode.flags(), 0o644)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

func (d *File) Read(_ context.Context) ([]byte, error) {
	buf := make([]byte, 4096)
	n, err := d.f.Read(buf)
	if err != nil {
		if err == io.EOF {
			return nil, xerr.ConnectionClosed(d.f.Name())
		}
		return nil, err
	}
	return buf[:n], nil
}

func (d *File) ReadUntil(_ context.Context, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.f, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, xerr.ConnectionClosed(d.f.Name())
		}
		return nil, err
	}
	return buf, nil
}

func (d *File) ReadAsStream(ctx context.Context, n int) *stream.Stream {
	return readAsStream(ctx, n, func(_ context.Context, want int) ([]byte, error) {
		buf := make([]byte, want)
		r, err := d.f.Read(buf)
		if err != nil && err != io.EOF {
			return nil, err
		}
		return buf[:r], nil
	})
}

func (d *File) Write(_ context.Context, b []byte) error {
	for len(b) > 0 {
		n, err := d.f.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (d *File) Close() error { return d.f.Close() }

// Size reports the file's current size.
func (d *File) Size() (int64, error) {
	fi, err := d.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Stdio is a line-buffered wrapper over stdin/stdout: read yields one
// line, write emits verbatim, with no timeout (spec.md §4.4).
type Stdio struct {
	r *bufio.Reader
	w io.Writer
}

func NewStdio() *Stdio {
	return &Stdio{r: bufio.NewReader(os.Stdin), w: os.Stdout}
}

func (d *Stdio) Read(_ context.Context) ([]byte, error) {
	line, err := d.r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		if err == io.EOF {
			return nil, xerr.ConnectionClosed("stdio")
		}
		return nil, err
	}
	return line, nil
}

func (d *Stdio) ReadUntil(ctx context.Context, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		line, err := d.Read(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, line...)
	}
	return out[:n], nil
}

func (d *Stdio) ReadAsStream(ctx context.Context, n int) *stream.Stream {
	return readAsStream(ctx, n, func(ctx context.Context, want int) ([]byte, error) {
		line, err := d.Read(ctx)
		if err != nil {
			return nil, err
		}
		if len(line) > want {
			line = line[:want]
		}
		return line, nil
	})
}

func (d *Stdio) Write(_ context.Context, b []byte) error {
	_, err := d.w.Write(b)
	return err
}

func (d *Stdio) Close() error { return nil }
