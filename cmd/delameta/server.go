package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/aufam/delameta-go/cmn/nlog"
	"github.com/aufam/delameta-go/descriptor"
	"github.com/aufam/delameta-go/httpd"
	"github.com/aufam/delameta-go/session"
)

// runServer is the no -u/-c mode: bind an HTTP engine to a session
// server on -H, accepting up to -n concurrent sockets (spec.md §6
// "With no -u/-c, the binary runs as HTTP server on host").
func runServer(c *cli.Context) error {
	e := httpd.NewEngine()
	e.ShowResponseTime = c.Bool("v")
	if c.Bool("v") {
		e.Logger = func(peer string, req *httpd.Request, res *httpd.Response) {
			fmt.Fprintln(os.Stderr, fcyan(peer), req.Method, req.URL.FullPath, res.Status)
		}
	}
	registerFileRoutes(e)

	opts := descriptor.NetOptions{KeepAlive: true, Max: -1}
	var acceptor session.Acceptor
	var err error

	cert, key := c.String("C"), c.String("K")
	if cert != "" || key != "" {
		if cert == "" || key == "" {
			return cli.NewExitError("both -C and -K are required for TLS", 1)
		}
		pair, lerr := tls.LoadX509KeyPair(cert, key)
		if lerr != nil {
			return cli.NewExitError(lerr.Error(), 1)
		}
		cfg := &tls.Config{Certificates: []tls.Certificate{pair}}
		acceptor, err = session.ListenTLS(c.String("H"), cfg, opts)
	} else {
		acceptor, err = session.ListenTCP(c.String("H"), opts)
	}
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	srv, err := session.NewServer(acceptor, e.Bind(), c.Int("n"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	srv.Metrics = session.NewMetrics("delameta")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		nlog.Infof("delameta: shutting down")
		srv.Stop()
	}()

	nlog.Infof("delameta: listening on %s", c.String("H"))
	return srv.Start(context.Background())
}
