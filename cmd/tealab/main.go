// Command tealab is the entry point for the tea recommendation and blend
// system. It provides a CLI (via Cobra) and an HTTP JSON API served by
// `tealab serve`.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/tealab-go/cmd/tealab/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
