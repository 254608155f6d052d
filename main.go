// The main package for the arxivd executable.
package main

import (
	"github.com/paperdesk/arxivd/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
