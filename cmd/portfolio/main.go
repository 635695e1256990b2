// Command portfolio runs the portfolio CMS API and its admin tooling.
//
// @title                       Portfolio CMS API
// @version                     1.0
// @description                 Public portfolio content, contact intake and the authenticated admin area.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	root := &cli.Command{
		Name:    "portfolio",
		Usage:   "Portfolio CMS API server and admin tooling",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			resetAdminCommand(),
		},
		Action: runServe,
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API (default)",
		Action: runServe,
	}
}

func resetAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset-admin",
		Usage: "Create the admin account or overwrite its password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Required: true, Usage: "admin username"},
			&cli.StringFlag{Name: "password", Required: true, Usage: "new password, at least 8 characters"},
		},
		Action: runResetAdmin,
	}
}
