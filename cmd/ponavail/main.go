// Command ponavail generates random PON topologies and reports the mean
// availability of their terminals.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/iti/ponavail"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ponavail:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for a configuration error, which the user can fix by
// changing the input, and 1 for anything else
func exitCode(err error) int {
	if errors.Is(err, ponavail.ErrConfig) {
		return 2
	}
	return 1
}
