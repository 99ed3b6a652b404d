package main

import (
	"os"

	"github.com/vaxtrace/vaxsync/internal/client/cli"
)

func main() {
	os.Exit(cli.Execute())
}
