// Package main provides the memosono command: it loads configuration, builds
// a local presence network, and runs shared game sessions on it.
package main

import (
	"github.com/spf13/cobra"
)

var releaseVersion = "0.1.0"

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}
