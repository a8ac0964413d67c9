// Command manyverse runs the Manyverse screens headless.
package main

import (
	"os"

	"github.com/ilkecan/manyverse/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
