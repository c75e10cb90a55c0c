package main

import (
	"fmt"
	"os"

	"github.com/celerix-dev/celerix-console/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
