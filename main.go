package main

import (
	"os"

	"github.com/rkodali/adept/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
