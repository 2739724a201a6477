package main

import (
	"os"

	"github.com/rpgjournals/credstore/cmd/credstore/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
