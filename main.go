// The main package for the aislecrawler executable.
package main

import (
	"github.com/basketdata/aisle-crawler/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
