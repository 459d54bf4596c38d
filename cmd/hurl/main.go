package main

import (
	"os"

	"github.com/hurlrunner/hurl/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
