// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/ontograph/internal/snapshot"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

func newImportCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Load classes, properties and objects from a YAML snapshot",
		Long: "Load a YAML snapshot. Classes and properties that already exist are skipped, " +
			"so importing the same file twice is harmless.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := snapshot.Parse(data)
			if err != nil {
				return err
			}
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				stats, err := snapshot.Import(ctx, app.Engine, doc)
				if err != nil {
					return err
				}
				printf(cmd, "Imported %d classes, %d parent links, %d attributes, %d object attributes, %d objects, %d object classes, %d relations (%d skipped)\n",
					stats.Classes, stats.Parents, stats.Attributes, stats.ObjectAttributes,
					stats.Objects, stats.ObjectClasses, stats.Relations, stats.Skipped)
				return nil
			})
		},
	}
}

func newExportCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ontology as a YAML snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("file")
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				doc, err := snapshot.Export(ctx, app.Engine)
				if err != nil {
					return err
				}
				data, err := snapshot.Marshal(doc)
				if err != nil {
					return err
				}
				if path == "" || path == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return ontoerr.Errorf(ontoerr.CodeCLIInputInvalid, "writing %s: %w", path, err)
				}
				printf(cmd, "Exported %d classes and %d objects to %s\n", len(doc.Classes), len(doc.Objects), path)
				return nil
			})
		},
	}
	cmd.Flags().StringP("file", "f", "", "output file (default stdout)")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, ontoerr.Errorf(ontoerr.CodeCLIInputInvalid, "reading %s: %w", path, err)
	}
	return data, nil
}
