// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/sigil-dev/ontograph/internal/secrets"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

func init() {
	keyring.MockInit()
}

func TestKeyringSetGetDelete(t *testing.T) {
	k := secrets.NewKeyring()
	svc := "test-roundtrip"

	require.NoError(t, k.Set(svc, "neo4j", "s3cret"))
	val, err := k.Get(svc, "neo4j")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", val)

	require.NoError(t, k.Delete(svc, "neo4j"))
	_, err = k.Get(svc, "neo4j")
	assert.True(t, ontoerr.HasCode(err, ontoerr.CodeSecretNotFound), "got %v", err)
	assert.True(t, ontoerr.IsNotFound(err))
}

func TestKeyringMissing(t *testing.T) {
	k := secrets.NewKeyring()
	_, err := k.Get("test-missing", "nope")
	assert.True(t, ontoerr.HasCode(err, ontoerr.CodeSecretNotFound))

	err = k.Delete("test-missing", "nope")
	assert.True(t, ontoerr.HasCode(err, ontoerr.CodeSecretNotFound))
}

func TestKeyringList(t *testing.T) {
	k := secrets.NewKeyring()
	svc := "test-list"

	keys, err := k.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, k.Set(svc, "a", "1"))
	require.NoError(t, k.Set(svc, "b", "2"))
	require.NoError(t, k.Set(svc, "a", "3"))

	keys, err = k.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, k.Delete(svc, "a"))
	require.NoError(t, k.Delete(svc, "b"))
	keys, err = k.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyringRejectsBadNames(t *testing.T) {
	k := secrets.NewKeyring()
	tests := []struct {
		name string
		err  error
	}{
		{"empty service", k.Set("", "key", "v")},
		{"empty key", k.Set("svc", "", "v")},
		{"reserved key", k.Set("svc", "__index__", "v")},
		{"get empty key", func() error { _, err := k.Get("svc", ""); return err }()},
		{"delete empty service", k.Delete("", "key")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, ontoerr.HasCode(tt.err, ontoerr.CodeSecretInvalidInput), "got %v", tt.err)
		})
	}
}
