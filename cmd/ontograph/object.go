// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/ontograph/internal/ontology"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

func newObjectCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "object",
		Short: "Manage objects",
	}
	addOutputFlag(cmd)

	create := &cobra.Command{
		Use:   "create <class-uri>",
		Short: "Create an object of a class",
		Long: "Create an object of a class. Properties outside the class signature are dropped " +
			"or rejected depending on ontology.validation_mode.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, _ := cmd.Flags().GetStringArray("set")
			props, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			rels, err := relationFlags(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				n, err := app.Engine.CreateObject(ctx, ontology.ObjectInput{
					ClassURI: args[0], Properties: props, Relations: rels,
				})
				if err != nil {
					return err
				}
				return printNode(cmd, n, "class", args[0])
			})
		},
	}
	create.Flags().StringArray("set", nil, "property as key=value (repeatable); uri, title and description are system fields")
	create.Flags().StringArray("rel", nil, "relation as <property-uri>=<target-uri> (repeatable)")
	create.Flags().StringArray("rel-in", nil, "incoming relation as <property-uri>=<source-uri> (repeatable)")

	get := &cobra.Command{
		Use:   "get <uri>",
		Short: "Show an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				n, err := app.Engine.GetObject(ctx, args[0])
				if err != nil {
					return err
				}
				return printNode(cmd, n, "object", args[0])
			})
		},
	}

	update := &cobra.Command{
		Use:   "update <uri>",
		Short: "Merge properties into an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, _ := cmd.Flags().GetStringArray("set")
			props, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				n, err := app.Engine.UpdateObject(ctx, args[0], props)
				if err != nil {
					return err
				}
				return printResult(cmd, n)
			})
		},
	}
	update.Flags().StringArray("set", nil, "property as key=value (repeatable)")

	del := &cobra.Command{
		Use:   "delete <uri>",
		Short: "Delete an object and its relations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				deleted, err := app.Engine.DeleteObject(ctx, args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return ontoerr.Errorf(ontoerr.CodeCLIEntityNotFound, "object %q not found", args[0])
				}
				printf(cmd, "Deleted object: %s\n", args[0])
				return nil
			})
		},
	}

	link := &cobra.Command{
		Use:   "link <uri> <property-uri> <target-uri>",
		Short: "Link an object to another node through an object property",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			incoming, _ := cmd.Flags().GetBool("incoming")
			rel := ontology.Relation{RelURI: args[1], TargetURI: args[2], Direction: ontology.Forward}
			if incoming {
				rel.Direction = ontology.Backward
			}
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				linked, err := app.Engine.LinkObject(ctx, args[0], rel)
				if err != nil {
					return err
				}
				if !linked {
					return ontoerr.Errorf(ontoerr.CodeCLIEntityNotFound,
						"relation not created: check that %q is an object property and %q exists", args[1], args[2])
				}
				printf(cmd, "Linked %s -[%s]-> %s\n", args[0], args[1], args[2])
				return nil
			})
		},
	}
	link.Flags().Bool("incoming", false, "link target -> object instead of object -> target")

	cmd.AddCommand(create, get, update, del, link)
	return cmd
}

// relationFlags collects --rel and --rel-in into relation requests.
func relationFlags(cmd *cobra.Command) ([]ontology.Relation, error) {
	var rels []ontology.Relation
	for _, f := range []struct {
		flag string
		dir  int
	}{{"rel", ontology.Forward}, {"rel-in", ontology.Backward}} {
		flag, dir := f.flag, f.dir
		pairs, _ := cmd.Flags().GetStringArray(flag)
		for _, p := range pairs {
			relURI, target, ok := strings.Cut(p, "=")
			if !ok || relURI == "" || target == "" {
				return nil, ontoerr.Errorf(ontoerr.CodeCLIInputInvalid, "--%s expects <property-uri>=<uri>, got %q", flag, p)
			}
			rels = append(rels, ontology.Relation{Direction: dir, RelURI: relURI, TargetURI: target})
		}
	}
	return rels, nil
}

// parseValue decodes raw as JSON when it is a number, boolean, null, array,
// object or quoted string, and returns it verbatim otherwise.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
