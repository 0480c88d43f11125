// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/ontology"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

func newClassCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Manage classes and their properties",
	}
	addOutputFlag(cmd)

	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			parent, _ := cmd.Flags().GetString("parent")
			desc, _ := cmd.Flags().GetString("description")
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				n, err := app.Engine.CreateClass(ctx, ontology.ClassInput{
					Title: args[0], Description: desc, URI: uri, ParentURI: parent,
				})
				if err != nil {
					return err
				}
				return printResult(cmd, n)
			})
		},
	}
	create.Flags().String("uri", "", "class uri (generated when empty)")
	create.Flags().String("parent", "", "uri of the parent class")
	create.Flags().String("description", "", "class description")

	get := &cobra.Command{
		Use:   "get <uri>",
		Short: "Show a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				n, err := app.Engine.GetClass(ctx, args[0])
				if err != nil {
					return err
				}
				return printNode(cmd, n, "class", args[0])
			})
		},
	}

	update := &cobra.Command{
		Use:   "update <uri>",
		Short: "Update a class title, description or properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch ontology.ClassPatch
			if cmd.Flags().Changed("title") {
				title, _ := cmd.Flags().GetString("title")
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				desc, _ := cmd.Flags().GetString("description")
				patch.Description = &desc
			}
			sets, _ := cmd.Flags().GetStringArray("set")
			props, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			patch.Properties = props
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				n, err := app.Engine.UpdateClass(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printNode(cmd, n, "class", args[0])
			})
		},
	}
	update.Flags().String("title", "", "new title")
	update.Flags().String("description", "", "new description")
	update.Flags().StringArray("set", nil, "extra property as key=value (repeatable)")

	del := &cobra.Command{
		Use:   "delete <uri>",
		Short: "Delete a class, its subclasses, their properties and objects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				stats, err := app.Engine.DeleteClass(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, stats)
			})
		},
	}

	roots := &cobra.Command{
		Use:   "roots",
		Short: "List classes without a parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				nodes, err := app.Engine.GetRootClasses(ctx)
				if err != nil {
					return err
				}
				return printResult(cmd, nodes)
			})
		},
	}

	listing := func(use, short string, fn func(*ontology.Engine) func(context.Context, string) ([]entity.Node, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <uri>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, v, func(ctx context.Context, app *App) error {
					nodes, err := fn(app.Engine)(ctx, args[0])
					if err != nil {
						return err
					}
					return printResult(cmd, nodes)
				})
			},
		}
	}

	signature := &cobra.Command{
		Use:   "signature <uri>",
		Short: "List the properties objects of a class may carry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				sig, err := app.Engine.CollectSignature(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, sig)
			})
		},
	}

	link := &cobra.Command{
		Use:   "link <uri> <parent-uri>",
		Short: "Link a class under an additional parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				linked, err := app.Engine.AddClassParent(ctx, args[1], args[0])
				if err != nil {
					return err
				}
				if !linked {
					return ontoerr.Errorf(ontoerr.CodeOntologyClassNotFound, "class %q or parent %q not found", args[0], args[1])
				}
				printf(cmd, "Linked %s under %s\n", args[0], args[1])
				return nil
			})
		},
	}

	cmd.AddCommand(
		create, get, update, del, roots,
		listing("parents", "List every ancestor of a class", func(e *ontology.Engine) func(context.Context, string) ([]entity.Node, error) {
			return e.GetClassParents
		}),
		listing("children", "List every descendant of a class", func(e *ontology.Engine) func(context.Context, string) ([]entity.Node, error) {
			return e.GetClassChildren
		}),
		listing("objects", "List the objects typed to a class", func(e *ontology.Engine) func(context.Context, string) ([]entity.Node, error) {
			return e.GetClassObjects
		}),
		signature, link,
		newAttributeCmd(v),
		newObjectAttributeCmd(v),
	)
	return cmd
}

func newAttributeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attribute",
		Aliases: []string{"attr"},
		Short:   "Manage datatype properties of a class",
	}

	add := &cobra.Command{
		Use:   "add <class-uri> <title>",
		Short: "Attach a datatype property to a class",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				n, err := app.Engine.AddClassAttribute(ctx, ontology.AttributeInput{
					ClassURI: args[0], Title: args[1], URI: uri,
				})
				if err != nil {
					return err
				}
				return printNode(cmd, n, "class", args[0])
			})
		},
	}
	add.Flags().String("uri", "", "property uri (generated when empty)")

	del := &cobra.Command{
		Use:   "delete <class-uri> <name>",
		Short: "Remove a datatype property and clear it from objects",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				stats, err := app.Engine.DeleteClassAttribute(ctx, args[0], args[1], uri)
				if err != nil {
					return err
				}
				return printResult(cmd, stats)
			})
		},
	}
	del.Flags().String("uri", "", "property uri, preferred over the name when set")

	cmd.AddCommand(add, del)
	return cmd
}

func newObjectAttributeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "object-attribute",
		Aliases: []string{"oattr"},
		Short:   "Manage object properties of a class",
	}

	add := &cobra.Command{
		Use:   "add <class-uri> <title> <range-uri>",
		Short: "Attach an object property to a class",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				n, err := app.Engine.AddClassObjectAttribute(ctx, ontology.ObjectAttributeInput{
					ClassURI: args[0], Title: args[1], RangeURI: args[2], URI: uri,
				})
				if err != nil {
					return err
				}
				return printNode(cmd, n, "class or range", args[0]+", "+args[2])
			})
		},
	}
	add.Flags().String("uri", "", "property uri (generated when empty)")

	del := &cobra.Command{
		Use:   "delete <uri>",
		Short: "Remove an object property and its instance relations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				stats, err := app.Engine.DeleteClassObjectAttribute(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, stats)
			})
		},
	}

	cmd.AddCommand(add, del)
	return cmd
}

// printNode prints n, or fails with a not-found error naming what is missing.
func printNode(cmd *cobra.Command, n *entity.Node, what, uri string) error {
	if n == nil {
		return ontoerr.Errorf(ontoerr.CodeCLIEntityNotFound, "%s %q not found", what, uri)
	}
	return printResult(cmd, n)
}

// parseAssignments turns key=value pairs into a property map. Values that
// parse as JSON (numbers, booleans, quoted strings, arrays) keep their type;
// anything else is a plain string.
func parseAssignments(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, raw, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, ontoerr.Errorf(ontoerr.CodeCLIInputInvalid, "expected key=value, got %q", p)
		}
		out[k] = parseValue(raw)
	}
	return out, nil
}
