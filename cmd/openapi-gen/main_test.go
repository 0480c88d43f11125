// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGenerateSpec(t *testing.T) {
	spec, err := generateSpec("json")
	require.NoError(t, err)

	var doc struct {
		OpenAPI string         `json:"openapi"`
		Paths   map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(spec, &doc))
	assert.Contains(t, doc.OpenAPI, "3.1")
	for _, path := range []string{
		"/health",
		"/api/v1/ontology",
		"/api/v1/classes",
		"/api/v1/classes/{uri}/signature",
		"/api/v1/objects/{uri}",
		"/api/v1/object-attributes/{uri}",
	} {
		assert.Contains(t, doc.Paths, path)
	}
}

func TestGenerateSpec_YAML(t *testing.T) {
	spec, err := generateSpec("yaml")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(spec, &doc))
	assert.Contains(t, doc, "paths")
	assert.Contains(t, doc, "components")
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"api/openapi/spec.json", "json"},
		{"spec.yaml", "yaml"},
		{"SPEC.YML", "yaml"},
		{"spec", "json"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFor(tt.path))
		})
	}
}
