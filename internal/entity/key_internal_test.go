// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package entity

import (
	"bytes"
	"errors"
	"testing"
	"testing/iotest"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeySkipsBiasedBytes(t *testing.T) {
	// 0xff and 0xf8 fall outside the unbiased range; 0 maps to 'A', 61 to '9'.
	src := bytes.NewReader([]byte{0xff, 0, 0xf8, 61, 1, 2, 3, 4, 5, 6, 7, 8})
	key, err := generateKey(src, 3)
	require.NoError(t, err)
	assert.Equal(t, "A9B", key)
}

func TestGenerateKeySourceFailure(t *testing.T) {
	_, err := generateKey(iotest.ErrReader(errors.New("entropy exhausted")), 8)
	require.Error(t, err)
	assert.True(t, ontoerr.HasCode(err, ontoerr.CodeEntityKeyGenerateFailure))
}
