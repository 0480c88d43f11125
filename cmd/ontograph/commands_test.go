// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

func runJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m), out)
	return m
}

// seedZoo creates animal > dog with a name attribute and one object.
func seedZoo(t *testing.T, dir string) {
	t.Helper()
	n := runJSON(t, "--data-dir", dir, "class", "create", "Animal", "--uri", "animal")
	assert.Equal(t, "node", n["_type"])
	assert.Equal(t, "animal", n["uri"])

	runJSON(t, "--data-dir", dir, "class", "create", "Dog", "--uri", "dog", "--parent", "animal")
	runJSON(t, "--data-dir", dir, "class", "attribute", "add", "animal", "name", "--uri", "dp-name")
	runJSON(t, "--data-dir", dir, "object", "create", "dog", "--set", "uri=rex", "--set", "name=Rex")
}

func TestClassCommands(t *testing.T) {
	dir := isolate(t)
	seedZoo(t, dir)

	out, err := run(t, "--data-dir", dir, "class", "parents", "dog")
	require.NoError(t, err)
	var parents []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &parents))
	require.Len(t, parents, 1)
	assert.Equal(t, "animal", parents[0]["uri"])

	updated := runJSON(t, "--data-dir", dir, "class", "update", "dog", "--description", "good boy", "--set", "legs=4")
	assert.Equal(t, "good boy", updated["description"])
	assert.EqualValues(t, 4, updated["properties"].(map[string]any)["legs"])

	sig := runJSON(t, "--data-dir", dir, "class", "signature", "dog")
	require.Len(t, sig["datatype_properties"], 1)

	out, err = run(t, "--data-dir", dir, "class", "objects", "dog", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "uri: rex")

	_, err = run(t, "--data-dir", dir, "class", "link", "animal", "dog")
	require.Error(t, err)
	assert.True(t, ontoerr.IsConflict(err), "got %s", ontoerr.CodeOf(err))

	_, err = run(t, "--data-dir", dir, "class", "get", "cat")
	require.Error(t, err)
	assert.True(t, ontoerr.IsNotFound(err))

	stats := runJSON(t, "--data-dir", dir, "class", "delete", "animal")
	assert.EqualValues(t, 2, stats["classes_deleted"])
	assert.EqualValues(t, 1, stats["objects_deleted"])
	assert.EqualValues(t, 1, stats["dp_deleted"])
}

func TestObjectCommands(t *testing.T) {
	dir := isolate(t)
	seedZoo(t, dir)
	runJSON(t, "--data-dir", dir, "class", "create", "Person", "--uri", "person")
	runJSON(t, "--data-dir", dir, "class", "oattr", "add", "dog", "owner", "person", "--uri", "op-owner")

	alice := runJSON(t, "--data-dir", dir, "object", "create", "person", "--set", "uri=alice", "--set", "title=Alice")
	assert.Equal(t, "Alice", alice["title"])

	fido := runJSON(t, "--data-dir", dir, "object", "create", "dog",
		"--set", "uri=fido", "--set", "age=3", "--set", "colour=brown", "--rel", "op-owner=alice")
	props := fido["properties"].(map[string]any)
	assert.NotContains(t, props, "colour", "properties outside the signature are dropped")
	assert.NotContains(t, props, "age")

	rex := runJSON(t, "--data-dir", dir, "object", "get", "rex")
	assert.Equal(t, "Rex", rex["properties"].(map[string]any)["name"])

	rex = runJSON(t, "--data-dir", dir, "object", "update", "rex", "--set", "name=Rexy")
	assert.Equal(t, "Rexy", rex["properties"].(map[string]any)["name"])

	out, err := run(t, "--data-dir", dir, "object", "link", "rex", "op-owner", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Linked rex")

	_, err = run(t, "--data-dir", dir, "object", "link", "rex", "op-owner", "nobody")
	require.Error(t, err)

	stats := runJSON(t, "--data-dir", dir, "class", "oattr", "delete", "op-owner")
	assert.EqualValues(t, 2, stats["relations_deleted"])

	out, err = run(t, "--data-dir", dir, "object", "delete", "rex")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted object: rex")

	_, err = run(t, "--data-dir", dir, "object", "delete", "rex")
	require.Error(t, err)
	assert.True(t, ontoerr.IsNotFound(err))

	_, err = run(t, "--data-dir", dir, "object", "update", "ghost", "--set", "name=x")
	require.Error(t, err)
	assert.True(t, ontoerr.HasCode(err, ontoerr.CodeOntologyObjectNotFound))
}

func TestObjectCreate_RejectMode(t *testing.T) {
	dir := isolate(t)
	seedZoo(t, dir)
	t.Setenv("ONTOGRAPH_ONTOLOGY_VALIDATION_MODE", "reject")

	_, err := run(t, "--data-dir", dir, "object", "create", "dog", "--set", "colour=brown")
	require.Error(t, err)
	assert.True(t, ontoerr.HasCode(err, ontoerr.CodeOntologyObjectValidateInvalid))
}

func TestObjectCreate_BadFlags(t *testing.T) {
	dir := isolate(t)

	_, err := run(t, "--data-dir", dir, "object", "create", "dog", "--set", "novalue")
	require.Error(t, err)
	assert.True(t, ontoerr.IsInvalidInput(err))

	_, err = run(t, "--data-dir", dir, "object", "create", "dog", "--rel", "op-owner")
	require.Error(t, err)
	assert.True(t, ontoerr.IsInvalidInput(err))
}

func TestOutputFormatRejected(t *testing.T) {
	dir := isolate(t)

	_, err := run(t, "--data-dir", dir, "class", "roots", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestTreeCommand(t *testing.T) {
	dir := isolate(t)

	out, err := run(t, "--data-dir", dir, "tree")
	require.NoError(t, err)
	assert.Contains(t, out, "(no classes)")

	seedZoo(t, dir)
	runJSON(t, "--data-dir", dir, "class", "create", "Cat", "--uri", "cat", "--parent", "animal")

	out, err = run(t, "--data-dir", dir, "tree", "--objects")
	require.NoError(t, err)
	assert.Contains(t, out, "Animal <animal> [0]")
	assert.Contains(t, out, "├── Cat <cat> [0]")
	assert.Contains(t, out, "└── Dog <dog> [1]")
	assert.NotContains(t, out, "cycle")
}

func TestExportImportCommands(t *testing.T) {
	dir := isolate(t)
	seedZoo(t, dir)

	file := filepath.Join(t.TempDir(), "zoo.yaml")
	out, err := run(t, "--data-dir", dir, "export", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 classes and 1 objects")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "uri: animal")

	fresh := filepath.Join(t.TempDir(), "fresh")
	out, err = run(t, "--data-dir", fresh, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 classes, 1 parent links, 1 attributes, 0 object attributes, 1 objects, 0 object classes, 0 relations (0 skipped)")

	out, err = run(t, "--data-dir", fresh, "import", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 classes")

	rex := runJSON(t, "--data-dir", fresh, "object", "get", "rex")
	assert.Equal(t, "Rex", rex["properties"].(map[string]any)["name"])

	exported, err := run(t, "--data-dir", fresh, "export")
	require.NoError(t, err)
	assert.Equal(t, string(data), exported)
}

func TestImportCommand_InvalidFile(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("version: 99\n"), 0o600))

	_, err := run(t, "--data-dir", dir, "import", file)
	require.Error(t, err)

	_, err = run(t, "--data-dir", dir, "import", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, ontoerr.IsInvalidInput(err))
}
