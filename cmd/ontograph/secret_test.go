// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"slices"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/ontograph/internal/config"
	"github.com/sigil-dev/ontograph/internal/secrets"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// memSecretStore is an in-memory secrets.Store for testing.
type memSecretStore struct {
	data map[string]string // key -> value; the service is always "ontograph"
}

func newMemSecretStore(keys ...string) *memSecretStore {
	m := &memSecretStore{data: make(map[string]string)}
	for _, k := range keys {
		m.data[k] = "redacted"
	}
	return m
}

func (m *memSecretStore) Set(_, key, value string) error {
	m.data[key] = value
	return nil
}

func (m *memSecretStore) Get(_, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", ontoerr.Errorf(ontoerr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func (m *memSecretStore) Delete(_, key string) error {
	if _, ok := m.data[key]; !ok {
		return ontoerr.Errorf(ontoerr.CodeSecretNotFound, "not found")
	}
	delete(m.data, key)
	return nil
}

func (m *memSecretStore) List(_ string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func useSecretStore(t *testing.T, store secrets.Store) {
	t.Helper()
	orig := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return store }
	t.Cleanup(func() { secretStoreFactory = orig })
}

func TestSecretList(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		wantKeys []string
		wantMsg  string // exact output for the empty case
	}{
		{
			name:    "empty store",
			wantMsg: "No secrets stored.\n",
		},
		{
			name:     "single key",
			keys:     []string{"neo4j"},
			wantKeys: []string{"neo4j"},
		},
		{
			name:     "multiple keys",
			keys:     []string{"neo4j", "postgres"},
			wantKeys: []string{"neo4j", "postgres"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			useSecretStore(t, newMemSecretStore(tt.keys...))

			out, err := run(t, "secret", "list")
			require.NoError(t, err)

			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, out)
				return
			}
			assert.Equal(t, tt.wantKeys, strings.Split(strings.TrimSpace(out), "\n"))
		})
	}
}

func TestSecretSet(t *testing.T) {
	isolate(t)
	store := newMemSecretStore()
	useSecretStore(t, store)

	out, err := run(t, "secret", "set", "neo4j", "hunter2")
	require.NoError(t, err)
	assert.Contains(t, out, "keyring://ontograph/neo4j")
	assert.Equal(t, "hunter2", store.data["neo4j"])
}

func TestSecretSet_FromStdin(t *testing.T) {
	isolate(t)
	store := newMemSecretStore()
	useSecretStore(t, store)

	root := NewRootCmd()
	root.SetIn(strings.NewReader("s3cret\n"))
	root.SetOut(new(strings.Builder))
	root.SetErr(new(strings.Builder))
	root.SetArgs([]string{"secret", "set", "postgres"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "s3cret", store.data["postgres"])

	root = NewRootCmd()
	root.SetIn(strings.NewReader(""))
	root.SetOut(new(strings.Builder))
	root.SetErr(new(strings.Builder))
	root.SetArgs([]string{"secret", "set", "postgres"})
	err := root.Execute()
	require.Error(t, err)
	assert.True(t, ontoerr.IsInvalidInput(err))
}

func TestSecretDelete(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		deleteKey  string
		wantOutput string
		wantCode   ontoerr.Code
	}{
		{
			name:       "delete existing key",
			keys:       []string{"neo4j"},
			deleteKey:  "neo4j",
			wantOutput: "Deleted secret: neo4j\n",
		},
		{
			name:      "delete non-existent key",
			deleteKey: "missing-key",
			wantCode:  ontoerr.CodeSecretNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			useSecretStore(t, newMemSecretStore(tt.keys...))

			out, err := run(t, "secret", "delete", tt.deleteKey)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, ontoerr.HasCode(err, tt.wantCode),
					"expected error code %s, got: %v", tt.wantCode, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutput, out)
		})
	}
}

func TestLoadConfig_ResolvesKeyringReferences(t *testing.T) {
	store := newMemSecretStore()
	store.data["neo4j"] = "hunter2"
	useSecretStore(t, store)

	v := viper.New()
	config.SetDefaults(v)
	v.Set("storage.backend", "neo4j")
	v.Set("storage.neo4j.password", "keyring://ontograph/neo4j")

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Storage.Neo4j.Password)
}
