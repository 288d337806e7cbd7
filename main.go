package main

import (
	"os"

	"github.com/ggsql/ggsql/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
