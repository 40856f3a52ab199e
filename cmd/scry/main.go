// Package main is the entry point of the scry command.
package main

import (
	"fmt"
	"os"

	"github.com/phrazzld/scry-engine/internal/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
