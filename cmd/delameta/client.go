package main

import (
	"context"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli"

	"github.com/aufam/delameta-go/endpoint"
	"github.com/aufam/delameta-go/httpd"
	"github.com/aufam/delameta-go/session"
	"github.com/aufam/delameta-go/urlx"
)

// runRequest is the -u mode: issue one HTTP request over plain TCP
// and print the result (spec.md §6 "With -u, it issues one HTTP
// request... Exit code 0 on 2xx; otherwise the response status").
func runRequest(c *cli.Context) error {
	rawURL := c.String("u")
	u := urlx.Parse(rawURL)

	body, err := requestBody(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	req := &httpd.Request{
		Method:  c.String("m"),
		URL:     u,
		Version: "HTTP/1.1",
		Headers: httpd.Headers{},
		Body:    body,
	}
	if ct := contentType(c); ct != "" {
		req.Headers.Set("Content-Type", ct)
	}

	// -C/-K only configure the server's TLS listener (spec.md §6); the
	// client request path dials plain TCP, matching endpoint.Open's
	// supported scheme set.
	sessURI := fmt.Sprintf("tcp://%s", u.Host)
	if u.Port != "" {
		sessURI += ":" + u.Port
	}

	cli2 := session.NewClient(sessURI)
	defer cli2.Close()

	res, err := httpd.Request(context.Background(), cli2, req)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	if err := printResponse(c, res); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if res.Status < 200 || res.Status >= 300 {
		os.Exit(res.Status)
	}
	return nil
}

func requestBody(c *cli.Context) (string, error) {
	if file := c.String("F"); file != "" {
		b, err := os.ReadFile(file)
		return string(b), err
	}
	if in := c.String("i"); in != "" {
		d, err := endpoint.Open(context.Background(), in)
		if err != nil {
			return "", err
		}
		defer d.Close()
		b, err := d.Read(context.Background())
		return string(b), err
	}
	if args := c.String("a"); args != "" {
		var m map[string]any
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(args, &m); err != nil {
			return "", err
		}
		b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(m)
		return string(b), err
	}
	return c.String("d"), nil
}

func printResponse(c *cli.Context, res *httpd.Response) error {
	text, err := res.Text()
	if err != nil {
		return err
	}
	if out := c.String("o"); out != "" {
		d, err := endpoint.Open(context.Background(), out)
		if err != nil {
			return err
		}
		defer d.Close()
		return d.Write(context.Background(), []byte(text))
	}
	if c.Bool("A") {
		for k, v := range res.Headers {
			fmt.Printf("%s: %s\n", k, v)
		}
	}
	if c.Bool("L") {
		fmt.Print(text)
	} else {
		fmt.Println(text)
	}
	return nil
}
