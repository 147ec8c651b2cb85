package main

import (
	"fmt"
	"os"

	"github.com/melih/lighthouse-executor/cmd/api/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
