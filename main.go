package main

import (
	"os"

	"github.com/tmigrate/tmig/cli"
)

func main() {
	os.Exit(cli.Execute())
}
