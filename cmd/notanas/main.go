// notanas - command-line client for a NotANAS file server.
package main

import (
	"os"

	"github.com/notanas/notanas-cli/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
