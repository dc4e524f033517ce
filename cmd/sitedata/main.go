// Package main is the entry point for the sitedata CLI.
package main

import (
	"os"

	"github.com/campusweb/sitedata/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
