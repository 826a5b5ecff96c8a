package main

import (
	"os"

	"github.com/kortfolk/chronicle/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
