// Command prodctl is the operator command line for the production backend.
package main

import (
	"os"

	"github.com/mamadbah2/knittrack/internal/cli"
)

func main() {
	os.Exit(cli.New().Execute())
}
