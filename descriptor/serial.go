//go:build linux

package descriptor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/aufam/delameta-go/cmn/xerr"
	"github.com/aufam/delameta-go/stream"
)

// baudRates maps a requested baud to the termios constant, grounded on
// original_source/core/linux/serial.cpp's get_baudrate table.
var baudRates = map[int]uint32{
	50: unix.B50, 75: unix.B75, 110: unix.B110, 134: unix.B134, 150: unix.B150,
	200: unix.B200, 300: unix.B300, 600: unix.B600, 1200: unix.B1200, 1800: unix.B1800,
	2400: unix.B2400, 4800: unix.B4800, 9600: unix.B9600, 19200: unix.B19200,
	38400: unix.B38400, 57600: unix.B57600, 115200: unix.B115200, 230400: unix.B230400,
	460800: unix.B460800, 921600: unix.B921600, 1000000: unix.B1000000,
}

// ScanAutoPort walks /dev for the first ttyACM*/ttyUSB* device (spec.md
// §4.4: "port=auto on serial means first available USB/ACM device"),
// grounded on the same readdir loop in serial.cpp's Serial::Open.
func ScanAutoPort() (string, error) {
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		name := e.Name()
		if strings.Contains(name, "ttyACM") || strings.Contains(name, "ttyUSB") {
			return "/dev/" + name, nil
		}
	}
	return "", xerr.New(xerr.CodeUsage, "serial: no ttyACM/ttyUSB device found")
}

// Serial wraps a tty configured via termios ioctls (baud rate, raw
// mode) — a domain dependency (golang.org/x/sys/unix) the standard
// library has no equivalent for.
type Serial struct {
	f *os.File
	NetOptions
}

func OpenSerial(port string, baud int, timeout time.Duration) (*Serial, error) {
	if port == "auto" {
		var err error
		port, err = ScanAutoPort()
		if err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(port, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	rate, ok := baudRates[baud]
	if !ok {
		f.Close()
		return nil, xerr.New(xerr.CodeUsage, "serial: cannot convert baudrate: %d", baud)
	}
	if err := configureRaw(int(f.Fd()), rate); err != nil {
		f.Close()
		return nil, err
	}
	return &Serial{f: f, NetOptions: NetOptions{Timeout: timeout}}, nil
}

func configureRaw(fd int, rate uint32) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Cflag |= unix.CLOCAL | unix.CREAD
	t.Cflag &^= unix.PARENB | unix.CSTOPB | unix.CSIZE
	t.Cflag |= unix.CS8
	t.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ISIG
	t.Iflag &^= unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Cflag &^= unix.CBAUD
	t.Cflag |= rate
	t.Ispeed = rate
	t.Ospeed = rate
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

func (d *Serial) Read(ctx context.Context) ([]byte, error) {
	return pollReadFile(ctx, d.f, d.Timeout, 4096)
}

func (d *Serial) ReadUntil(ctx context.Context, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		b, err := pollReadFile(ctx, d.f, d.Timeout, n-len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (d *Serial) ReadAsStream(ctx context.Context, n int) *stream.Stream {
	return readAsStream(ctx, n, func(ctx context.Context, want int) ([]byte, error) {
		return pollReadFile(ctx, d.f, d.Timeout, want)
	})
}

func (d *Serial) Write(ctx context.Context, b []byte) error {
	for len(b) > 0 {
		select {
		case <-ctx.Done():
			return xerr.ConnectionClosed(d.f.Name())
		default:
		}
		n, err := d.f.Write(b)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				time.Sleep(PollInterval)
				continue
			}
			return err
		}
		b = b[n:]
	}
	return nil
}

func (d *Serial) Close() error { return d.f.Close() }

// pollReadFile performs non-blocking reads on a raw, O_NONBLOCK-opened
// file/tty, retrying on EAGAIN every PollInterval (spec.md §4.3, §5).
func pollReadFile(ctx context.Context, f *os.File, timeout time.Duration, bufSize int) ([]byte, error) {
	buf := make([]byte, bufSize)
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil, xerr.ConnectionClosed(f.Name())
		default:
		}
		n, err := f.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err == nil {
			time.Sleep(PollInterval)
			continue
		}
		if errors.Is(err, unix.EAGAIN) {
			if timeout > 0 && time.Since(start) >= timeout {
				return nil, xerr.TransferTimeout(fmt.Sprintf("serial %s", f.Name()))
			}
			time.Sleep(PollInterval)
			continue
		}
		return nil, err
	}
}
