package main

import (
	"os"

	"github.com/mergerstool/mergers/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
