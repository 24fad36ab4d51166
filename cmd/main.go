package main

import (
	"os"

	"quiz-battle-coordinator/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
