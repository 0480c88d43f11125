// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package entity

import (
	"crypto/rand"
	"io"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// DefaultKeyLength is the length of generated uris.
const DefaultKeyLength = 12

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Bytes at or above this bound are discarded so every symbol of the
// alphabet is equally likely.
const keyRejectBound = 256 - 256%len(keyAlphabet)

// GenerateKey returns a random alphanumeric string of the given length drawn
// from crypto/rand.
func GenerateKey(length int) (string, error) {
	return generateKey(rand.Reader, length)
}

func generateKey(src io.Reader, length int) (string, error) {
	if length <= 0 {
		return "", ontoerr.New(ontoerr.CodeEntityKeyLengthInvalid, "key length must be positive",
			ontoerr.Field("length", length))
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", ontoerr.Wrap(err, ontoerr.CodeEntityKeyGenerateFailure, "reading random bytes")
		}
		for _, b := range buf {
			if int(b) >= keyRejectBound {
				continue
			}
			out = append(out, keyAlphabet[int(b)%len(keyAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
