//go:build !linux

package descriptor

import (
	"context"
	"time"

	"github.com/aufam/delameta-go/cmn/xerr"
	"github.com/aufam/delameta-go/stream"
)

// Serial is a stub outside Linux: separate linux/windows/stm32_hal
// termios-equivalents exist in original_source/core/{linux,windows,
// stm32_hal}/serial.cpp; this module targets the Linux host build and
// leaves Windows COM-port support as a follow-on, matching spec.md §1's
// "CLI... out of scope" framing for anything beyond the Linux core.
type Serial struct{ NetOptions }

func OpenSerial(string, int, time.Duration) (*Serial, error) {
	return nil, xerr.New(xerr.CodeUsage, "serial: unsupported on this platform")
}

func (d *Serial) Read(context.Context) ([]byte, error)            { return nil, xerr.New(xerr.CodeUsage, "unsupported") }
func (d *Serial) ReadUntil(context.Context, int) ([]byte, error)   { return nil, xerr.New(xerr.CodeUsage, "unsupported") }
func (d *Serial) ReadAsStream(context.Context, int) *stream.Stream { return stream.New() }
func (d *Serial) Write(context.Context, []byte) error              { return xerr.New(xerr.CodeUsage, "unsupported") }
func (d *Serial) Close() error                                     { return nil }
