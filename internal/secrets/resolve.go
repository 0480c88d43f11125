// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"log/slog"

	"github.com/spf13/viper"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// Resolve returns the secret a keyring:// value points at. Other values are
// returned unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	ref, err := ParseRef(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(ref.Service, ref.Key)
	if err != nil {
		return "", ontoerr.Wrapf(err, ontoerr.CodeSecretResolveFailure, "resolving %s", ref)
	}
	return secret, nil
}

// ResolveViper replaces every keyring:// string in v with its secret and
// returns how many were resolved. A reference that cannot be resolved is
// logged and left in place, so the component using it fails with a clear
// credential error later.
func ResolveViper(v *viper.Viper, store Store) int {
	resolved := 0
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok || !IsRef(val) {
			continue
		}
		secret, err := Resolve(store, val)
		if err != nil {
			slog.Warn("keyring reference not resolved, keeping original value", "config_key", key, "error", err)
			continue
		}
		v.Set(key, secret)
		resolved++
	}
	return resolved
}
