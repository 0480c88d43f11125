// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Command ontograph manages an ontology stored as a property graph.
package main

import (
	"fmt"
	"os"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

func main() {
	err := NewRootCmd().Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitCode(err))
}

// exitCode is 2 for usage and input errors, 1 otherwise.
func exitCode(err error) int {
	if ontoerr.IsInvalidInput(err) {
		return 2
	}
	return 1
}
