package main

import (
	"os"

	"sigchat/cmd/sigchat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
