package main

import (
	"os"

	"car-deal-finder/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
