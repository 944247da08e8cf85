package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli"

	"github.com/aufam/delameta-go/httpd"
)

// runLocal is the -c mode: dispatch against the in-process route table
// as if it were a local request, without opening any socket (spec.md
// §6 "With -c, it dispatches against the in-process handler table as
// if it were a local request").
func runLocal(c *cli.Context) error {
	e := httpd.NewEngine()
	registerFileRoutes(e)

	path := c.String("c")
	var query string
	if args := c.String("a"); args != "" {
		var m map[string]string
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(args, &m); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		var parts []string
		for k, v := range m {
			parts = append(parts, k+"="+v)
		}
		if len(parts) > 0 {
			query = "?" + strings.Join(parts, "&")
		}
	}

	body := c.String("d")
	if file := c.String("F"); file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		body = string(b)
	}

	var raw strings.Builder
	raw.WriteString(c.String("m") + " " + path + query + " HTTP/1.1\r\n")
	if ct := contentType(c); ct != "" {
		raw.WriteString("Content-Type: " + ct + "\r\n")
	}
	raw.WriteString(fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body)))
	raw.WriteString(body)

	_, res := e.Execute(context.Background(), nil, []byte(raw.String()))
	if err := printResponse(c, res); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if res.Status < 200 || res.Status >= 300 {
		os.Exit(res.Status)
	}
	return nil
}
