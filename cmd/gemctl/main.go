// Command gemctl runs maintenance and admin tasks against a gemstore
// deployment.
package main

import (
	"fmt"
	"os"

	"gemstore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
