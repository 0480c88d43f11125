// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// groupOrOtherRead covers the read bits of group and other.
const groupOrOtherRead fs.FileMode = 0o044

// InsecurePermissions reports whether the file at path can be read by its
// group or by other users, together with its mode.
func InsecurePermissions(path string) (fs.FileMode, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false, err
	}
	return info.Mode(), info.Mode().Perm()&groupOrOtherRead != 0, nil
}

// WarnInsecurePermissions logs a warning when the config file at path is
// group- or world-readable. An empty path means defaults only and is a no-op.
func WarnInsecurePermissions(path string) {
	if path == "" {
		return
	}
	mode, insecure, err := InsecurePermissions(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return
	}
	if insecure {
		slog.Warn("config file has insecure permissions, credentials may be exposed to other users",
			"path", path,
			"mode", mode,
			"recommended", "0600",
		)
	}
}
