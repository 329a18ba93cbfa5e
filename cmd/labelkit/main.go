// Command labelkit is the annotation project CLI.
package main

import (
	"os"

	"github.com/kilupskalvis/labelkit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
