package main

import (
	"os"

	"github.com/smartsim-dev/smartsim/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
