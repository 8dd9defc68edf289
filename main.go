// The main package for the la_palma_overview executable.
package main

import (
	"github.com/fact-project/la-palma-overview/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
