package main

import (
	"os"

	"github.com/civigrid/evacd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
