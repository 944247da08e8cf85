// Package nlog is delameta's logger: timestamped, severity leveled,
// with file-size rotation; each line is written straight to its file.
// No multi-buffer memory pool or hostname/redaction machinery: this module has no per-node secrets to
// redact and no cluster-scale log volume to amortize allocations
// against.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevChar = [...]byte{'I', 'W', 'E'}

// MaxSize bounds a log file before it is rotated.
var MaxSize int64 = 4 * 1024 * 1024

var (
	toStderr     bool
	alsoToStderr bool
	logDir       string
	title        string

	once sync.Once
	logs [3]*writer
)

type writer struct {
	mu      sync.Mutex
	sev     severity
	file    *os.File
	written int64
}

func initLogs() {
	for s := sevInfo; s <= sevErr; s++ {
		logs[s] = &writer{sev: s}
	}
}

// InitFlags registers -logtostderr/-alsologtostderr: flags are the only
// configuration surface, no config file layer.
func InitFlags(flset *flag.FlagSet) {
	flset.BoolVar(&toStderr, "logtostderr", false, "log to standard error instead of files")
	flset.BoolVar(&alsoToStderr, "alsologtostderr", false, "log to standard error as well as files")
}

// SetLogDirRole sets the directory log files are rotated into; role is a
// short tag (e.g. "server", "client") folded into the log file name.
func SetLogDirRole(dir, role string) { logDir, title = dir, role }

func Infof(format string, a ...any)    { write(sevInfo, 1, fmt.Sprintf(format, a...)) }
func Infoln(a ...any)                  { write(sevInfo, 1, fmt.Sprintln(a...)) }
func Warningf(format string, a ...any) { write(sevWarn, 1, fmt.Sprintf(format, a...)) }
func Warningln(a ...any)               { write(sevWarn, 1, fmt.Sprintln(a...)) }
func Errorf(format string, a ...any)   { write(sevErr, 1, fmt.Sprintf(format, a...)) }
func Errorln(a ...any)                 { write(sevErr, 1, fmt.Sprintln(a...)) }

func write(sev severity, depth int, msg string) {
	once.Do(initLogs)
	line := header(sev, depth+1) + msg
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	switch {
	case !flag.Parsed() || toStderr:
		os.Stderr.WriteString(line)
	case alsoToStderr || sev >= sevWarn:
		os.Stderr.WriteString(line)
		logs[sevInfo].append(line)
		if sev >= sevWarn {
			logs[sevErr].append(line)
		}
	default:
		logs[sevInfo].append(line)
	}
}

func header(sev severity, depth int) string {
	_, fn, ln, ok := runtime.Caller(depth + 2)
	now := time.Now().Format("15:04:05.000000")
	if !ok {
		return fmt.Sprintf("%c %s ", sevChar[sev], now)
	}
	if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
		fn = fn[idx+1:]
	}
	return fmt.Sprintf("%c %s %s:%d ", sevChar[sev], now, fn, ln)
}

func (w *writer) append(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil && logDir != "" {
		w.open(time.Now())
	}
	if w.file == nil {
		return
	}
	n, err := w.file.WriteString(line)
	if err != nil {
		return
	}
	w.written += int64(n)
	if w.written >= MaxSize {
		w.file.Close()
		w.open(time.Now())
	}
}

func (w *writer) open(now time.Time) {
	name := fmt.Sprintf("%s.%s.%02d%02d-%02d%02d%02d.log",
		sevName(w.sev), title, now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	w.file, w.written = f, 0
	fmt.Fprintf(f, "Started up at %s, %s for %s/%s (pid %d)\n",
		now.Format("2006/01/02 15:04:05"), runtime.Version(), runtime.GOOS, runtime.GOARCH, os.Getpid())
}

func sevName(sev severity) string {
	switch sev {
	case sevWarn:
		return "WARN"
	case sevErr:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Flush syncs and, if exit is true, closes all open log files. Callers
// invoke this on clean shutdown and in cos.ExitLogf.
func Flush(exit ...bool) {
	once.Do(initLogs)
	ex := len(exit) > 0 && exit[0]
	for _, w := range logs {
		w.mu.Lock()
		if w.file != nil {
			w.file.Sync()
			if ex {
				w.file.Close()
				w.file = nil
			}
		}
		w.mu.Unlock()
	}
}
