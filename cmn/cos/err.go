// Package cos provides common low-level types and utilities shared by
// every layer of delameta: syscall-error classification for the
// descriptor's non-blocking read/write retry loop, a bounded multi-error
// accumulator, and process-fatal helpers.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"

	"github.com/aufam/delameta-go/cmn/debug"
	"github.com/aufam/delameta-go/cmn/nlog"
)

type Errs struct {
	errs []error
	mu   sync.Mutex
}

const maxErrs = 4

func (e *Errs) Add(err error) {
	debug.Assert(err != nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Cnt() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

func (e *Errs) JoinErr() (cnt int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cnt = len(e.errs); cnt > 0 {
		err = errors.Join(e.errs...)
	}
	return
}

func (e *Errs) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return ""
	}
	s := e.errs[0].Error()
	if n := len(e.errs); n > 1 {
		s = fmt.Sprintf("%s (and %d more error%s)", s, n-1, Plural(n-1))
	}
	return s
}

//
// syscall / transport error classification, used by the descriptor's
// read/write retry loop (spec.md §4.3, §5) to decide EAGAIN-retry vs.
// ConnectionClosed vs. bubble-up.
//

func UnwrapSyscallErr(err error) error {
	var serr *os.SyscallError
	if errors.As(err, &serr) {
		return serr.Unwrap()
	}
	return nil
}

func IsErrSyscallTimeout(err error) bool {
	var serr *os.SyscallError
	return errors.As(err, &serr) && serr.Timeout()
}

func IsErrWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

func IsErrConnectionRefused(err error) bool { return errors.Is(err, syscall.ECONNREFUSED) }
func IsErrConnectionReset(err error) bool   { return errors.Is(err, syscall.ECONNRESET) }
func IsErrBrokenPipe(err error) bool        { return errors.Is(err, syscall.EPIPE) }

func IsRetriableConnErr(err error) bool {
	return IsErrConnectionRefused(err) || IsErrConnectionReset(err) || IsErrBrokenPipe(err)
}

func IsEOF(err error) bool {
	return err != nil && (errors.Is(err, os.ErrClosed) || err.Error() == "EOF")
}

func isErrDNSLookup(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func IsUnreachable(err error) bool {
	return IsErrConnectionRefused(err) || isErrDNSLookup(err) || errors.Is(err, os.ErrDeadlineExceeded)
}

//
// abnormal termination: print (and, for ExitLogf, log and flush) a
// FATAL ERROR line, then exit with status 1.
//

const fatalPrefix = "FATAL ERROR: "

func Exitf(f string, a ...any) {
	_exit(fmt.Sprintf(fatalPrefix+f, a...))
}

func ExitLogf(f string, a ...any) {
	msg := fmt.Sprintf(fatalPrefix+f, a...)
	if flag.Parsed() {
		nlog.Errorln(msg)
		nlog.Flush(true)
	}
	_exit(msg)
}

func _exit(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
