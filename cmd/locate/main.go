// Package main is the locate command.
package main

import (
	"fmt"
	"os"

	"github.com/geofix/locmgr/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
