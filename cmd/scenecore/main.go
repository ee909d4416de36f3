// Command scenecore compiles, validates and runs CUE scene declarations.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/scenecore/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
