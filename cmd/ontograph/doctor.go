// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/sigil-dev/ontograph/internal/config"
)

func newDoctorCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, configuration, config file permissions, graph store, class hierarchy, a running server and disk space.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, v)
		},
	}

	cmd.Flags().String("address", defaultAddress, "server address to check")

	return cmd
}

func runDoctor(cmd *cobra.Command, v *viper.Viper) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")
	dataDir := resolveDataDir(v)
	ctx := cmdContext(cmd)

	cfg, cfgErr := loadConfig(v)

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(v, cfgErr) }},
		{"Permissions", func() string { return checkPermissions(v.ConfigFileUsed()) }},
		{"Store", func() string { return checkStore(ctx, cfg, dataDir) }},
		{"Server", func() string { return checkServer(addr) }},
		{"Disk Space", func() string { return checkDiskSpace(dataDir) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("ontograph %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(v *viper.Viper, cfgErr error) string {
	if cfgErr != nil {
		return fmt.Sprintf("invalid: %s", cfgErr)
	}
	if cfgFile := v.ConfigFileUsed(); cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkPermissions(path string) string {
	if path == "" {
		return "no config file"
	}
	mode, insecure, err := config.InsecurePermissions(path)
	if err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}
	if insecure {
		return fmt.Sprintf("%04o is readable by group or others (chmod 0600 %s)", mode.Perm(), path)
	}
	return fmt.Sprintf("%04o", mode.Perm())
}

// checkStore opens the configured store, pings it and reports hierarchy
// cycles.
func checkStore(ctx context.Context, cfg *config.Config, dataDir string) string {
	if cfg == nil {
		return "skipped (config invalid)"
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	app, err := WireApp(ctx, cfg, dataDir, false)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	defer func() { _ = app.Close() }()

	if err := app.Store.Ping(ctx); err != nil {
		return fmt.Sprintf("%s unreachable: %s", app.Store.Backend(), err)
	}
	h, err := app.Engine.Hierarchy(ctx)
	if err != nil {
		return fmt.Sprintf("%s reachable, reading hierarchy failed: %s", app.Store.Backend(), err)
	}
	status := fmt.Sprintf("%s ok, %d classes", app.Store.Backend(), h.Len())
	if cyclic := h.Cyclic(); len(cyclic) > 0 {
		status += fmt.Sprintf(", WARNING: cycle through %s", strings.Join(cyclic, ", "))
	}
	return status
}

func checkServer(addr string) string {
	status, err := serverHealth(addr)
	if err != nil {
		if errors.Is(err, errServerNotRunning) {
			return fmt.Sprintf("not running at %s (run 'ontograph serve')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s at %s", status, addr)
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// The data directory is created on first use.
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
