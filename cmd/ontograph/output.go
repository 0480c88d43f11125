// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// withApp loads the configuration, wires the engine without metrics, runs fn
// and closes everything afterwards.
func withApp(cmd *cobra.Command, v *viper.Viper, fn func(ctx context.Context, app *App) error) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)
	app, err := WireApp(ctx, cfg, resolveDataDir(v), false)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("closing app", "error", err)
		}
	}()
	return fn(ctx, app)
}

// addOutputFlag registers --output on cmd and its children.
func addOutputFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("output", "o", "json", "output format: json or yaml")
}

// printResult writes v in the format chosen by --output.
func printResult(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return render(cmd.OutOrStdout(), format, v)
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		// Round-trip through JSON so yaml keys follow the json tags.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return ontoerr.Errorf(ontoerr.CodeCLIInputInvalid, "unsupported output format %q: use json or yaml", format)
	}
}

// printf writes to the command's stdout, ignoring write errors the way the
// rest of the CLI does.
func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
