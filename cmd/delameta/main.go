// Command delameta is the single-binary CLI surface from spec.md §6:
// with no -u/-c it runs an HTTP server; with -u it issues one HTTP
// request; with -c it dispatches locally against the in-process route
// table. One flat flag set, no subcommands.
/*
 * Copyright (c) 2024, delameta. All rights reserved.
 */
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/aufam/delameta-go/cmn/nlog"
)

const version = "1.0.0"

var fcyan = color.New(color.FgHiCyan).SprintFunc()

func main() {
	app := cli.NewApp()
	app.Name = "delameta"
	app.Usage = "descriptor/HTTP/Modbus toolkit CLI"
	app.Version = version
	app.Flags = flags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool("V") {
		fmt.Println(version)
		return nil
	}
	if logFile := c.String("l"); logFile != "" {
		nlog.SetLogDirRole(logFile, "delameta")
	}

	switch {
	case c.String("u") != "":
		return runRequest(c)
	case c.String("c") != "":
		return runLocal(c)
	default:
		return runServer(c)
	}
}
