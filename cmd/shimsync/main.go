package main

import (
	"fmt"
	"os"

	"github.com/adamancini/shimsync/internal/cmd"
	"github.com/adamancini/shimsync/internal/output"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cmd.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, output.Fail("Error:"), err)
		os.Exit(1)
	}
}
