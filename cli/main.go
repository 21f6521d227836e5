package main

import (
	"os"

	"github.com/threatlens/threatlens-stack/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
