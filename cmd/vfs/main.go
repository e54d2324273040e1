// vfs runs one operation against the drives of a configuration file and
// exits.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
