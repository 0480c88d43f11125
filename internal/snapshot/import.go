// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package snapshot

import (
	"context"
	"log/slog"
	"maps"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/ontology"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// ImportStats counts what Import created and what it skipped.
type ImportStats struct {
	Classes          int `json:"classes" yaml:"classes"`
	Parents          int `json:"parents" yaml:"parents"`
	Attributes       int `json:"attributes" yaml:"attributes"`
	ObjectAttributes int `json:"object_attributes" yaml:"object_attributes"`
	Objects          int `json:"objects" yaml:"objects"`
	ObjectClasses    int `json:"object_classes" yaml:"object_classes"`
	Relations        int `json:"relations" yaml:"relations"`
	Skipped          int `json:"skipped" yaml:"skipped"`
}

// Import replays doc through engine: classes parents first, then parent
// links, properties, objects with their extra classes and finally
// relations. Entries whose uri is already taken, parent links of classes
// that already existed or that would close a cycle, and entries whose class
// is missing are skipped. Any other error stops the import.
func Import(ctx context.Context, engine Engine, doc *Document) (ImportStats, error) {
	var stats ImportStats
	if errs := doc.Validate(); len(errs) > 0 {
		return stats, errs[0]
	}
	logger := slog.Default().With("component", "snapshot")

	skip := func(err error, what, uri string) error {
		if ontoerr.IsConflict(err) {
			logger.Warn("snapshot entry skipped", "kind", what, "uri", uri, "error", err)
			stats.Skipped++
			return nil
		}
		return ontoerr.Wrap(err, ontoerr.CodeSnapshotImportFailure, "importing "+what, ontoerr.FieldURI(uri))
	}

	byURI := make(map[string]Class, len(doc.Classes))
	nodes := make([]entity.Node, 0, len(doc.Classes))
	var arcs []entity.Arc
	for _, c := range doc.Classes {
		byURI[c.URI] = c
		nodes = append(nodes, entity.Node{URI: c.URI})
		for _, p := range c.Parents {
			arcs = append(arcs, entity.Arc{Type: entity.RelSubclassOf, From: c.URI, To: p})
		}
	}
	order := ontology.NewHierarchy(nodes, arcs).Order()

	fresh := make(map[string]bool, len(order))
	for _, uri := range order {
		c := byURI[uri]
		_, err := engine.CreateClass(ctx, ontology.ClassInput{URI: c.URI, Title: c.Title, Description: c.Description})
		if err != nil {
			if err := skip(err, "class", c.URI); err != nil {
				return stats, err
			}
			continue
		}
		stats.Classes++
		fresh[uri] = true
		if len(c.Properties) > 0 {
			if _, err := engine.UpdateClass(ctx, c.URI, ontology.ClassPatch{Properties: c.Properties}); err != nil {
				return stats, ontoerr.Wrap(err, ontoerr.CodeSnapshotImportFailure, "importing class", ontoerr.FieldURI(c.URI))
			}
		}
	}

	for _, uri := range order {
		if !fresh[uri] {
			stats.Skipped += len(byURI[uri].Parents)
			continue
		}
		for _, parent := range byURI[uri].Parents {
			ok, err := engine.AddClassParent(ctx, parent, uri)
			switch {
			case ontoerr.HasCode(err, ontoerr.CodeOntologyHierarchyCycleConflict):
				logger.Warn("parent link would close a cycle, skipped", "uri", uri, "parent_uri", parent)
				stats.Skipped++
			case err != nil:
				return stats, ontoerr.Wrap(err, ontoerr.CodeSnapshotImportFailure, "importing parent link", ontoerr.FieldURI(uri))
			case ok:
				stats.Parents++
			default:
				stats.Skipped++
			}
		}
	}

	for _, uri := range order {
		c := byURI[uri]
		for _, a := range c.Attributes {
			n, err := engine.AddClassAttribute(ctx, ontology.AttributeInput{
				ClassURI: c.URI, Title: a.Title, URI: a.URI, Properties: a.Properties,
			})
			if err != nil {
				if err := skip(err, "attribute", a.URI); err != nil {
					return stats, err
				}
				continue
			}
			if n == nil {
				stats.Skipped++
				continue
			}
			stats.Attributes++
		}
		for _, a := range c.ObjectAttributes {
			n, err := engine.AddClassObjectAttribute(ctx, ontology.ObjectAttributeInput{
				ClassURI: c.URI, Title: a.Title, RangeURI: a.Range, URI: a.URI, Properties: a.Properties,
			})
			if err != nil {
				if err := skip(err, "object attribute", a.URI); err != nil {
					return stats, err
				}
				continue
			}
			if n == nil {
				stats.Skipped++
				continue
			}
			stats.ObjectAttributes++
		}
	}

	created := make(map[string]bool, len(doc.Objects))
	for _, o := range doc.Objects {
		props := maps.Clone(o.Properties)
		if props == nil {
			props = map[string]any{}
		}
		if o.URI != "" {
			props[entity.PropURI] = o.URI
		}
		if o.Title != "" {
			props[entity.PropTitle] = o.Title
		}
		if o.Description != "" {
			props[entity.PropDescription] = o.Description
		}
		n, err := engine.CreateObject(ctx, ontology.ObjectInput{ClassURI: o.Class, Properties: props})
		if err != nil {
			if err := skip(err, "object", o.URI); err != nil {
				return stats, err
			}
			continue
		}
		if n == nil {
			stats.Skipped++
			continue
		}
		stats.Objects++
		created[n.URI] = true
		for _, class := range o.AlsoClasses {
			ok, err := engine.AddObjectClass(ctx, n.URI, class)
			if err != nil {
				return stats, ontoerr.Wrap(err, ontoerr.CodeSnapshotImportFailure, "importing object class", ontoerr.FieldURI(n.URI))
			}
			if ok {
				stats.ObjectClasses++
			} else {
				stats.Skipped++
			}
		}
	}

	for _, o := range doc.Objects {
		if !created[o.URI] {
			stats.Skipped += len(o.Relations)
			continue
		}
		for _, r := range o.Relations {
			ok, err := engine.LinkObject(ctx, o.URI, ontology.Relation{
				Direction: ontology.Forward, TargetURI: r.Target, RelURI: r.Property,
			})
			if err != nil {
				return stats, ontoerr.Wrap(err, ontoerr.CodeSnapshotImportFailure, "importing relation", ontoerr.FieldURI(o.URI))
			}
			if ok {
				stats.Relations++
			} else {
				stats.Skipped++
			}
		}
	}
	return stats, nil
}
