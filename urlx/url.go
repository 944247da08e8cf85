// Package urlx implements C1, the URL parser (spec.md §4.1): a pure
// function turning "[scheme://]host[:port][/path][?query][#fragment]"
// into its fields plus a percent-decoded query map. A small,
// allocation-light, hand-rolled parser rather than a heavier URI
// library, matching cmn/cos's error/UUID helpers.
/*
 * Copyright (c) 2024, delameta. All rights reserved.
 */
package urlx

import (
	"net"
	"strconv"
	"strings"
)

// DefaultPorts is the well-known scheme -> port table from spec.md §4.1.
var DefaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ftp":   "21",
	"smtp":  "25",
	"pop3":  "110",
	"imap":  "143",
}

// URL is the parsed form described in spec.md §3 "URL".
type URL struct {
	Scheme   string
	Host     string
	Port     string
	Path     string
	FullPath string
	Queries  map[string]string
	Fragment string
	IP       string
}

// Parse implements spec.md §4.1's left-to-right classification algorithm.
func Parse(raw string) URL {
	u := URL{Path: "/"}

	rest := raw
	if i := strings.Index(rest, "://"); i >= 0 {
		u.Scheme = rest[:i]
		rest = rest[i+3:]
	}

	// split host[:port] from the first of '/', '?', '#'
	hostEnd := len(rest)
	pathStart, queryStart, fragStart := -1, -1, -1
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '/':
			if pathStart == -1 && queryStart == -1 && fragStart == -1 {
				pathStart = i
			}
		case '?':
			if queryStart == -1 && fragStart == -1 {
				queryStart = i
			}
		case '#':
			if fragStart == -1 {
				fragStart = i
			}
		}
	}
	for _, v := range []int{pathStart, queryStart, fragStart} {
		if v >= 0 && v < hostEnd {
			hostEnd = v
		}
	}
	hostport := rest[:hostEnd]
	remainder := rest[hostEnd:]

	u.Host, u.Port = splitHostPort(hostport)

	// classify remainder: everything from the first of '/', '?', '#'
	rp, rq, rf := -1, -1, -1
	for i := 0; i < len(remainder); i++ {
		switch remainder[i] {
		case '/':
			if rp == -1 && rq == -1 && rf == -1 {
				rp = i
			}
		case '?':
			if rq == -1 && rf == -1 {
				rq = i
			}
		case '#':
			if rf == -1 {
				rf = i
			}
		}
	}

	switch {
	case rf >= 0 && (rq == -1 || rf < rq):
		// '#' precedes '?' (or no '?' at all): everything after '#' is
		// fragment, no query (spec.md §4.1).
		if rp >= 0 && rp < rf {
			u.Path = remainder[rp:rf]
		} else if rp >= 0 {
			u.Path = remainder[rp:]
		}
		u.Fragment = decodePercent(remainder[rf+1:])
	case rq >= 0:
		if rp >= 0 && rp < rq {
			u.Path = remainder[rp:rq]
		} else if rp >= 0 {
			u.Path = remainder[rp:]
		}
		queryPart := remainder[rq+1:]
		if rf >= 0 {
			queryPart = remainder[rq+1 : rf]
			u.Fragment = decodePercent(remainder[rf+1:])
		}
		u.Queries = parseQuery(queryPart)
	case rp >= 0:
		u.Path = remainder[rp:]
	}

	if u.Path == "" {
		u.Path = "/"
	}
	if u.Queries == nil {
		u.Queries = map[string]string{}
	}

	u.FullPath = u.Path
	if rq >= 0 {
		qEnd := len(remainder)
		if rf >= 0 {
			qEnd = rf
		}
		u.FullPath += remainder[rq:qEnd]
	}
	if u.Fragment != "" {
		u.FullPath += "#" + u.Fragment
	}

	u.IP = resolveIP(u.Host)
	return u
}

func splitHostPort(hostport string) (host, port string) {
	if strings.HasPrefix(hostport, "[") {
		// bracketed IPv6: "[::1]:8080" or "[::1]"
		end := strings.IndexByte(hostport, ']')
		if end < 0 {
			return hostport, ""
		}
		host = hostport[1:end]
		tail := hostport[end+1:]
		if strings.HasPrefix(tail, ":") {
			port = tail[1:]
		}
		return host, port
	}
	if i := strings.LastIndexByte(hostport, ':'); i >= 0 && !strings.Contains(hostport[i+1:], ":") {
		return hostport[:i], hostport[i+1:]
	}
	return hostport, ""
}

func parseQuery(raw string) map[string]string {
	q := map[string]string{}
	if raw == "" {
		return q
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		q[decodePercent(k)] = decodePercent(v)
	}
	return q
}

// decodePercent converts %HH escapes to bytes, applied exactly once per
// spec.md §3's "percent-decoded once" invariant.
func decodePercent(s string) string {
	if !strings.ContainsRune(s, '%') && !strings.ContainsRune(s, '+') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			if i+2 < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(n))
					i += 2
					continue
				}
			}
			b.WriteByte('%')
		case '+':
			b.WriteByte(' ')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// EncodePercent is the inverse of decodePercent: every byte outside the
// unreserved set (letters, digits, '-', '_', '.', '~') is written as a
// two-digit %HH escape.
func EncodePercent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-' || c == '_' || c == '.' || c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			if c < 0x10 {
				b.WriteByte('0')
			}
			b.WriteString(strings.ToUpper(strconv.FormatUint(uint64(c), 16)))
		}
	}
	return b.String()
}

func resolveIP(host string) string {
	if host == "" {
		return ""
	}
	if ip := net.ParseIP(host); ip != nil {
		return host
	}
	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		return host // best-effort passthrough, spec.md §3
	}
	return addrs[0]
}

// EffectivePort returns u.Port, falling back to the default-port table keyed by
// scheme (defaulting to "http" per spec.md §3's empty-scheme invariant).
func (u URL) EffectivePort() string {
	if u.Port != "" {
		return u.Port
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return DefaultPorts[scheme]
}

func (u URL) EffectiveScheme() string {
	if u.Scheme == "" {
		return "http"
	}
	return u.Scheme
}
