// Command tabkeeper inspects and maintains a tabkeeper store offline.
package main

import (
	"os"

	"github.com/GriffinCanCode/tabkeeper/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Run(version); err != nil {
		os.Exit(1)
	}
}
