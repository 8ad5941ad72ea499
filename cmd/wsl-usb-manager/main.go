// Package main is used for the wsl-usb-manager command.
package main

import (
	"os"

	"github.com/nickbeth/wsl-usb-manager/cli"
)

var version = "dev"

func main() {
	app := cli.NewCommand(&cli.Args{
		Version: version,
	})

	// Run the main command and handle errors.
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
