// Command samplem-bridge runs samplem and streams its output.
package main

import (
	"os"

	"github.com/binjac/samplem-bridge/internal/cmd"
)

func main() {
	os.Exit(cmd.Main())
}
