// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// indexKey holds a JSON list of the keys stored under a service, since the
// OS keyrings cannot enumerate entries.
const indexKey = "__index__"

// Keyring stores secrets in the OS keyring: Keychain on macOS, the secret
// service on Linux, Credential Manager on Windows.
type Keyring struct{}

// NewKeyring returns a Keyring.
func NewKeyring() *Keyring { return &Keyring{} }

func (k *Keyring) Set(service, key, value string) error {
	if err := checkNames("set", service, key); err != nil {
		return err
	}
	if key == indexKey {
		return ontoerr.Errorf(ontoerr.CodeSecretInvalidInput, "secret set: key %q is reserved", key)
	}
	if err := keyring.Set(service, key, value); err != nil {
		return keyringError(err, "storing secret", service, key)
	}
	keys, err := k.List(service)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return k.saveIndex(service, append(keys, key))
}

func (k *Keyring) Get(service, key string) (string, error) {
	if err := checkNames("get", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if err != nil {
		return "", keyringError(err, "retrieving secret", service, key)
	}
	return val, nil
}

func (k *Keyring) Delete(service, key string) error {
	if err := checkNames("delete", service, key); err != nil {
		return err
	}
	if err := keyring.Delete(service, key); err != nil {
		return keyringError(err, "deleting secret", service, key)
	}
	keys, err := k.List(service)
	if err != nil {
		return err
	}
	return k.saveIndex(service, slices.DeleteFunc(keys, func(s string) bool { return s == key }))
}

// List returns the keys stored under service in the order they were added.
func (k *Keyring) List(service string) ([]string, error) {
	raw, err := keyring.Get(service, indexKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, keyringError(err, "loading key index", service, indexKey)
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, ontoerr.Wrap(err, ontoerr.CodeSecretStoreFailure, "decoding key index",
			ontoerr.Field("service", service))
	}
	return keys, nil
}

func (k *Keyring) saveIndex(service string, keys []string) error {
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("failed to remove empty key index", "service", service, "error", err)
		}
		return nil
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return ontoerr.Wrap(err, ontoerr.CodeSecretStoreFailure, "encoding key index")
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return keyringError(err, "saving key index", service, indexKey)
	}
	return nil
}

func keyringError(err error, msg, service, key string) error {
	fields := []ontoerr.Attr{ontoerr.Field("service", service), ontoerr.Field("key", key)}
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return ontoerr.New(ontoerr.CodeSecretNotFound, "secret not found", fields...)
	case errors.Is(err, keyring.ErrUnsupportedPlatform):
		return ontoerr.Wrap(err, ontoerr.CodeSecretKeyringDisabled, "os keyring is not available", fields...)
	default:
		return ontoerr.Wrap(err, ontoerr.CodeSecretStoreFailure, msg, fields...)
	}
}
