// Command pfs is the personal file store CLI.
package main

import (
	"os"

	"github.com/mesh-intelligence/pfs/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
