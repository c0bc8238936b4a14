// Package main is the entry point for the pktcodec command line tool.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/pktcodec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
