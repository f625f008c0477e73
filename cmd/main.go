package main

import (
	"fmt"
	"os"
)

// zkpassport - CLI tool and API service preparing passport data for
// zero-knowledge circuits
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
