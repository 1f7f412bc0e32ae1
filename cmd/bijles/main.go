package main

import (
	"os"

	"github.com/mjansen/bijleslab/cmd/bijles/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
