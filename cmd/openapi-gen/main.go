// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Command openapi-gen writes the ontograph HTTP API description to disk.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sigil-dev/ontograph/internal/server"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

func main() {
	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	spec, err := generateSpec(formatFor(outPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// generateSpec registers every route on a throwaway server and renders the
// OpenAPI document huma derives from the handler types.
func generateSpec(format string) ([]byte, error) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		return nil, ontoerr.Errorf(ontoerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	// Handlers are never invoked during generation.
	srv.RegisterOntology(stubOntology{})

	doc := srv.API().OpenAPI()
	if format == "yaml" {
		return doc.YAML()
	}
	return json.MarshalIndent(doc, "", "  ")
}

// stubOntology satisfies server.Ontology for schema discovery only. Calling
// any method panics.
type stubOntology struct {
	server.Ontology
}
