package main

import (
	"os"

	"github.com/arionyau/obelisk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}