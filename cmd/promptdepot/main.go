package main

import (
	"os"

	"github.com/skosovsky/promptdepot/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
