// Package main provides the entry point for the photodup duplicate
// finder CLI.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
