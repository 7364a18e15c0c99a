package main

import (
	"os"

	"github.com/loanerfleet/loanerfleet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
