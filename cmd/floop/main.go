package main

import (
	"os"

	"github.com/fortress-labs/floop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
