// Package endpoint implements C4, the endpoint factory (spec.md §4.4,
// §6): resolving a URI string into an open descriptor.Descriptor.
/*
 * Copyright (c) 2024, delameta. All rights reserved.
 */
package endpoint

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/aufam/delameta-go/cmn/xerr"
	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/urlx"
)

// Open resolves uri (spec.md §6 "URI scheme surface") into an open
// Descriptor. Supported schemes: stdio://, file://, serial://, tcp://,
// udp://.
func Open(ctx context.Context, uri string) (descriptor.Descriptor, error) {
	u := urlx.Parse(uri)
	switch u.EffectiveScheme() {
	case "stdio":
		return descriptor.NewStdio(), nil
	case "file":
		return openFile(u)
	case "serial":
		return openSerial(u)
	case "tcp":
		return openTCP(ctx, u)
	case "udp":
		return openUDP(ctx, u)
	default:
		return nil, xerr.New(xerr.CodeUsage, "endpoint: unknown scheme %q", u.Scheme)
	}
}

func openFile(u urlx.URL) (descriptor.Descriptor, error) {
	mode, err := descriptor.ParseFileMode(u.Queries["mode"])
	if err != nil {
		return nil, err
	}
	return descriptor.OpenFile(u.Path, mode)
}

// openSerial resolves the device name from either host form
// (serial://ttyUSB0, serial://auto) or path form
// (serial:///dev/ttyUSB0), since a path-form URI leaves u.Host empty
// and puts the device name in u.Path instead.
func openSerial(u urlx.URL) (descriptor.Descriptor, error) {
	device := u.Host
	if device == "" {
		device = strings.TrimPrefix(u.Path, "/")
	}
	baud := 9600
	if v := u.Queries["baud"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			baud = n
		}
	}
	timeout := parseSeconds(u.Queries["timeout"])
	return descriptor.OpenSerial(device, baud, timeout)
}

// openTCP dials host[:port] walking every resolved address until one
// connects (spec.md §4.4: "selected by DNS resolution walking all
// addrinfo entries until one connects").
func openTCP(ctx context.Context, u urlx.URL) (descriptor.Descriptor, error) {
	port := u.Port
	if port == "" {
		port = "80"
	}
	connTimeout := parseSeconds(u.Queries["connection-timeout"])
	dialCtx := ctx
	var cancel context.CancelFunc
	if connTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, connTimeout)
		defer cancel()
	}
	addrs, err := net.DefaultResolver.LookupHost(ctx, u.Host)
	if err != nil {
		addrs = []string{u.Host}
	}
	var dialer net.Dialer
	var lastErr error
	for _, addr := range addrs {
		conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(addr, port))
		if err == nil {
			return descriptor.NewTCP(conn, descriptor.NetOptions{
				KeepAlive: true,
				Timeout:   parseSeconds(u.Queries["timeout"]),
				Max:       -1,
			}), nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func openUDP(ctx context.Context, u urlx.URL) (descriptor.Descriptor, error) {
	port := u.Port
	if port == "" {
		port = "0"
	}
	peer, err := net.ResolveUDPAddr("udp", net.JoinHostPort(u.Host, port))
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, peer)
	if err != nil {
		return nil, err
	}
	return descriptor.NewUDP(conn, peer, descriptor.NetOptions{
		Timeout: parseSeconds(u.Queries["timeout"]),
		Max:     -1,
	}), nil
}

func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
