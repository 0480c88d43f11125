// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/ontograph/internal/ontology"
)

var (
	classStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cycleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func newTreeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the class hierarchy",
		Long:  "Print the class hierarchy from the root classes down. A class with several parents appears under each of them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			counts, _ := cmd.Flags().GetBool("objects")
			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				h, err := app.Engine.Hierarchy(ctx)
				if err != nil {
					return err
				}
				var objects map[string]int
				if counts {
					if objects, err = countObjects(ctx, app.Engine, h.URIs()); err != nil {
						return err
					}
				}
				renderTree(cmd.OutOrStdout(), h, objects)
				return nil
			})
		},
	}
	cmd.Flags().Bool("objects", false, "show how many objects each class has")
	return cmd
}

func countObjects(ctx context.Context, e *ontology.Engine, uris []string) (map[string]int, error) {
	out := make(map[string]int, len(uris))
	for _, uri := range uris {
		objs, err := e.GetClassObjects(ctx, uri)
		if err != nil {
			return nil, err
		}
		out[uri] = len(objs)
	}
	return out, nil
}

// renderTree writes h depth-first. Classes only reachable through a cycle
// are printed as extra roots, and a back edge is marked instead of followed.
func renderTree(w io.Writer, h *ontology.Hierarchy, objects map[string]int) {
	if h.Len() == 0 {
		_, _ = fmt.Fprintln(w, dimStyle.Render("(no classes)"))
		return
	}
	seen := make(map[string]bool, h.Len())
	var visit func(uri, prefix string, last, root bool, path map[string]bool)
	visit = func(uri, prefix string, last, root bool, path map[string]bool) {
		seen[uri] = true
		branch, childPrefix := "", ""
		if !root {
			branch, childPrefix = "├── ", prefix+"│   "
			if last {
				branch, childPrefix = "└── ", prefix+"    "
			}
		}
		line := prefix + branch + label(h, uri, objects)
		if path[uri] {
			_, _ = fmt.Fprintln(w, line+" "+cycleStyle.Render("(cycle)"))
			return
		}
		_, _ = fmt.Fprintln(w, line)

		path[uri] = true
		defer delete(path, uri)
		children := h.Children(uri)
		for i, child := range children {
			visit(child, childPrefix, i == len(children)-1, false, path)
		}
	}

	for _, uri := range h.Roots() {
		visit(uri, "", true, true, map[string]bool{})
	}
	for _, uri := range h.URIs() {
		if !seen[uri] {
			visit(uri, "", true, true, map[string]bool{})
		}
	}
	if cyclic := h.Cyclic(); len(cyclic) > 0 {
		_, _ = fmt.Fprintln(w, cycleStyle.Render("classes on a cycle: "+strings.Join(cyclic, ", ")))
	}
}

func label(h *ontology.Hierarchy, uri string, objects map[string]int) string {
	title := uri
	if c, ok := h.Class(uri); ok && c.Title != "" {
		title = c.Title
	}
	out := classStyle.Render(title) + " " + dimStyle.Render("<"+uri+">")
	if objects != nil {
		out += " " + dimStyle.Render(fmt.Sprintf("[%d]", objects[uri]))
	}
	return out
}
