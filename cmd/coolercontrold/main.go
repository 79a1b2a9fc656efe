// Command coolercontrold is the cooling device control daemon.
package main

import (
	"fmt"
	"os"

	"github.com/coolercontrol-go/coolercontrold/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
