package main

import "github.com/urfave/cli"

// Flags mirror spec.md §6's CLI surface verbatim, one short flag per
// behavior: no subcommands, a single flat flag set parsed once.
var flags = []cli.Flag{
	cli.StringFlag{Name: "H", Value: "0.0.0.0:8080", Usage: "host:port to bind (server mode)"},
	cli.IntFlag{Name: "n", Value: 64, Usage: "max concurrent sockets (server mode)"},
	cli.StringFlag{Name: "u", Usage: "url: issue one HTTP request and exit"},
	cli.StringFlag{Name: "c", Usage: "cmd: dispatch against the in-process handler table, no I/O"},
	cli.StringFlag{Name: "a", Usage: "args-json: a JSON object; query parameters for -c, request body for -u"},
	cli.StringFlag{Name: "d", Usage: "data: request/upload body"},
	cli.StringFlag{Name: "m", Value: "GET", Usage: "method"},
	cli.StringFlag{Name: "i", Usage: "input-endpoint: read the body from this URI instead of -d"},
	cli.StringFlag{Name: "F", Usage: "file: read the body from this local file instead of -d"},
	cli.BoolFlag{Name: "j", Usage: "Content-Type: application/json"},
	cli.BoolFlag{Name: "t", Usage: "Content-Type: text/plain"},
	cli.BoolFlag{Name: "f", Usage: "Content-Type: application/x-www-form-urlencoded"},
	cli.StringFlag{Name: "o", Usage: "output-endpoint: write the response body to this URI instead of stdout"},
	cli.StringFlag{Name: "l", Usage: "log-file"},
	cli.BoolFlag{Name: "V", Usage: "print version and exit"},
	cli.BoolFlag{Name: "v", Usage: "verbose"},
	cli.BoolFlag{Name: "L", Usage: "no trailing linefeed on printed body"},
	cli.StringFlag{Name: "C", Usage: "TLS certificate file"},
	cli.StringFlag{Name: "K", Usage: "TLS key file"},
	cli.BoolFlag{Name: "A", Usage: "print response headers"},
}

func contentType(c *cli.Context) string {
	switch {
	case c.Bool("j"):
		return "application/json"
	case c.Bool("t"):
		return "text/plain"
	case c.Bool("f"):
		return "application/x-www-form-urlencoded"
	default:
		return ""
	}
}
