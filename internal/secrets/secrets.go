// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package secrets keeps credentials such as the Neo4j password out of the
// config file. Config values of the form keyring://service/key are resolved
// against a Store after loading.
package secrets

import (
	"strings"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// DefaultService is the keyring service used by the CLI.
const DefaultService = "ontograph"

const scheme = "keyring://"

// Store saves and looks up secrets by service and key. Get and Delete fail
// with secret.lookup.not_found for unknown keys.
type Store interface {
	Set(service, key, value string) error
	Get(service, key string) (string, error)
	Delete(service, key string) error
	List(service string) ([]string, error)
}

// Ref points at one secret.
type Ref struct {
	Service string
	Key     string
}

// String renders r as a keyring:// reference.
func (r Ref) String() string { return scheme + r.Service + "/" + r.Key }

// IsRef reports whether value uses the keyring:// scheme.
func IsRef(value string) bool {
	return strings.HasPrefix(value, scheme)
}

// ParseRef splits keyring://service/key. The key may itself contain slashes.
func ParseRef(value string) (Ref, error) {
	if !IsRef(value) {
		return Ref{}, ontoerr.Errorf(ontoerr.CodeSecretInvalidInput, "not a keyring reference: %q", value)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(value, scheme), "/")
	if !ok || service == "" || key == "" {
		return Ref{}, ontoerr.Errorf(ontoerr.CodeSecretInvalidInput,
			"invalid keyring reference %q: expected keyring://service/key", value)
	}
	return Ref{Service: service, Key: key}, nil
}

func checkNames(op, service, key string) error {
	if service == "" {
		return ontoerr.New(ontoerr.CodeSecretInvalidInput, "secret "+op+": service must not be empty")
	}
	if key == "" {
		return ontoerr.New(ontoerr.CodeSecretInvalidInput, "secret "+op+": key must not be empty")
	}
	return nil
}
