// Command animctl drives the shortshive API from a terminal.
package main

import (
	"os"

	"shortshive/cmd/animctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
