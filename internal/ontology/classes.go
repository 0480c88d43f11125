// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package ontology

import (
	"context"
	"slices"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/events"
	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/query"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// legacyClassProperty is consulted by GetClassObjects when a class has no
// TYPE_OF instances.
const legacyClassProperty = "class_uri"

// ClassInput describes a class to create.
type ClassInput struct {
	Title       string
	Description string
	// URI is generated when empty.
	URI string
	// ParentURI, when set, links the new class under an existing class. A
	// missing parent leaves the class unlinked.
	ParentURI string
}

// ClassPatch holds the fields UpdateClass may change. Nil fields are left
// untouched.
type ClassPatch struct {
	Title       *string
	Description *string
	Properties  map[string]any
}

// CascadeStats reports what DeleteClass removed.
type CascadeStats struct {
	ClassesDeleted   int `json:"classes_deleted" yaml:"classes_deleted"`
	ObjectsDeleted   int `json:"objects_deleted" yaml:"objects_deleted"`
	DPDeleted        int `json:"dp_deleted" yaml:"dp_deleted"`
	OPDeleted        int `json:"op_deleted" yaml:"op_deleted"`
	RelationsDeleted int `json:"relations_deleted" yaml:"relations_deleted"`
}

func (s CascadeStats) asMap() map[string]int {
	return map[string]int{
		"classes_deleted":   s.ClassesDeleted,
		"objects_deleted":   s.ObjectsDeleted,
		"dp_deleted":        s.DPDeleted,
		"op_deleted":        s.OPDeleted,
		"relations_deleted": s.RelationsDeleted,
	}
}

// GetClass returns the class at uri, or nil when it does not exist.
func (e *Engine) GetClass(ctx context.Context, uri string) (*entity.Node, error) {
	return getNode(ctx, e.store, uri, entity.LabelClass)
}

func getNode(ctx context.Context, r graphstore.Runner, uri, label string) (*entity.Node, error) {
	if uri == "" {
		return nil, nil
	}
	q, err := query.MatchNode(uri, label)
	rows, err := exec(ctx, r, q, err)
	if err != nil {
		return nil, err
	}
	return first(rows, query.ColNode), nil
}

// GetClassParents returns every ancestor of the class at uri. The class
// itself appears only when stored data already contains a cycle through it.
func (e *Engine) GetClassParents(ctx context.Context, uri string) ([]entity.Node, error) {
	return closure(ctx, e.store, uri, query.Out)
}

// GetClassChildren returns every descendant of the class at uri.
func (e *Engine) GetClassChildren(ctx context.Context, uri string) ([]entity.Node, error) {
	return closure(ctx, e.store, uri, query.In)
}

func closure(ctx context.Context, r graphstore.Runner, uri string, dir query.Direction) ([]entity.Node, error) {
	if uri == "" {
		return []entity.Node{}, nil
	}
	q, err := query.Closure(uri, entity.RelSubclassOf, dir, entity.LabelClass)
	rows, err := exec(ctx, r, q, err)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, query.ColNode), nil
}

// GetRootClasses returns the classes with no parent.
func (e *Engine) GetRootClasses(ctx context.Context) ([]entity.Node, error) {
	q, err := query.Roots(entity.RelSubclassOf, entity.LabelClass)
	rows, err := exec(ctx, e.store, q, err)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, query.ColNode), nil
}

// GetClassObjects returns the objects typed to the class at uri. When none
// are linked through TYPE_OF, objects carrying a matching class_uri
// property are returned instead.
func (e *Engine) GetClassObjects(ctx context.Context, uri string) ([]entity.Node, error) {
	if uri == "" {
		return []entity.Node{}, nil
	}
	objects, err := typedObjects(ctx, e.store, []string{uri})
	if err != nil || len(objects) > 0 {
		return objects, err
	}
	q, err := query.MatchProperty(legacyClassProperty, uri, entity.LabelObject)
	rows, err := exec(ctx, e.store, q, err)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, query.ColNode), nil
}

func typedObjects(ctx context.Context, r graphstore.Runner, classURIs []string) ([]entity.Node, error) {
	if len(classURIs) == 0 {
		return []entity.Node{}, nil
	}
	q, err := query.Neighbors(classURIs, entity.RelTypeOf, query.In,
		[]string{entity.LabelClass}, []string{entity.LabelObject})
	rows, err := exec(ctx, r, q, err)
	if err != nil {
		return nil, err
	}
	return decodeAll(rows, query.ColNode), nil
}

// CreateClass creates a class and, when in.ParentURI is set, links it under
// that parent. A missing parent is not an error.
func (e *Engine) CreateClass(ctx context.Context, in ClassInput) (entity.Node, error) {
	uri := in.URI
	if uri == "" {
		var err error
		if uri, err = e.newKey(); err != nil {
			return entity.Node{}, err
		}
	}
	node := entity.Node{URI: uri, Title: in.Title, Description: in.Description}

	var created *entity.Node
	err := graphstore.Atomically(ctx, e.store, func(r graphstore.Runner) error {
		q, err := query.CreateNode(entity.EncodeParams(node), entity.LabelClass)
		rows, err := exec(ctx, r, q, err)
		if err != nil {
			return err
		}
		created = first(rows, query.ColNode)
		if in.ParentURI == "" {
			return nil
		}
		linked, err := link(ctx, r, uri, entity.RelSubclassOf, in.ParentURI, entity.LabelClass, entity.LabelClass)
		if err != nil {
			return err
		}
		if !linked {
			e.logger.Debug("parent class not found, class left unlinked", "uri", uri, "parent_uri", in.ParentURI)
		}
		return nil
	})
	if err != nil {
		return entity.Node{}, err
	}
	if created == nil {
		created = &node
	}
	e.mutated(ctx, events.KindClass, events.OpCreated, uri, nil)
	return *created, nil
}

// link creates from -[rel]-> to and reports whether both endpoints existed.
func link(ctx context.Context, r graphstore.Runner, from, rel, to, fromLabel, toLabel string) (bool, error) {
	q, err := query.CreateArc(
		query.Ref{URI: from, Labels: []string{fromLabel}},
		rel,
		query.Ref{URI: to, Labels: []string{toLabel}},
		nil,
	)
	rows, err := exec(ctx, r, q, err)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// UpdateClass merges patch into the class at uri and returns the result, or
// nil when the class does not exist. The uri is never changed.
func (e *Engine) UpdateClass(ctx context.Context, uri string, patch ClassPatch) (*entity.Node, error) {
	props := make(map[string]any, len(patch.Properties)+2)
	for k, v := range patch.Properties {
		if k != entity.PropURI {
			props[k] = v
		}
	}
	if patch.Title != nil {
		props[entity.PropTitle] = *patch.Title
	}
	if patch.Description != nil {
		props[entity.PropDescription] = *patch.Description
	}
	if len(props) == 0 {
		return e.GetClass(ctx, uri)
	}
	updated, err := updateNode(ctx, e.store, uri, props, entity.LabelClass)
	if err != nil || updated == nil {
		return updated, err
	}
	e.mutated(ctx, events.KindClass, events.OpUpdated, uri, nil)
	return updated, nil
}

func updateNode(ctx context.Context, r graphstore.Runner, uri string, props map[string]any, label string) (*entity.Node, error) {
	if uri == "" {
		return nil, nil
	}
	q, err := query.UpdateNode(uri, props, query.Merge, label)
	rows, err := exec(ctx, r, q, err)
	if err != nil {
		return nil, err
	}
	return first(rows, query.ColNode), nil
}

// AddClassParent links targetURI under parentURI and reports whether the
// edge was created. Both classes must exist. An edge that would make a
// class its own ancestor is rejected with ontology.hierarchy.cycle.conflict.
func (e *Engine) AddClassParent(ctx context.Context, parentURI, targetURI string) (bool, error) {
	if parentURI == "" || targetURI == "" {
		return false, nil
	}
	if parentURI == targetURI {
		return false, cycleError(parentURI, targetURI)
	}
	ancestors, err := closure(ctx, e.store, parentURI, query.Out)
	if err != nil {
		return false, err
	}
	if slices.ContainsFunc(ancestors, func(n entity.Node) bool { return n.URI == targetURI }) {
		return false, cycleError(parentURI, targetURI)
	}

	linked, err := link(ctx, e.store, targetURI, entity.RelSubclassOf, parentURI, entity.LabelClass, entity.LabelClass)
	if err != nil || !linked {
		return false, err
	}
	e.mutated(ctx, events.KindClass, events.OpLinked, targetURI, nil)
	return true, nil
}

func cycleError(parentURI, targetURI string) error {
	return ontoerr.New(ontoerr.CodeOntologyHierarchyCycleConflict,
		"parent link would make the class its own ancestor",
		ontoerr.Field("parent_uri", parentURI), ontoerr.FieldURI(targetURI))
}

// DeleteClass removes the class at uri together with every descendant
// class, the properties attached to any of them, the instance relations
// typed by those object properties, and every object typed to any of them.
// A missing class yields zero stats.
func (e *Engine) DeleteClass(ctx context.Context, uri string) (CascadeStats, error) {
	var stats CascadeStats
	err := graphstore.Atomically(ctx, e.store, func(r graphstore.Runner) error {
		stats = CascadeStats{}
		root, err := getNode(ctx, r, uri, entity.LabelClass)
		if err != nil || root == nil {
			return err
		}
		desc, err := closure(ctx, r, uri, query.In)
		if err != nil {
			return err
		}
		classes := uriSet([]entity.Node{*root}, desc)

		ops, err := attached(ctx, r, classes, entity.LabelObjectProperty)
		if err != nil {
			return err
		}
		dps, err := attached(ctx, r, classes, entity.LabelDatatypeProperty)
		if err != nil {
			return err
		}

		if stats.RelationsDeleted, err = e.deleteInstanceRelations(ctx, r, ops); err != nil {
			return err
		}
		if stats.OPDeleted, err = deleteNodes(ctx, r, uriSet(ops), entity.LabelObjectProperty); err != nil {
			return err
		}
		if stats.DPDeleted, err = deleteNodes(ctx, r, uriSet(dps), entity.LabelDatatypeProperty); err != nil {
			return err
		}

		objects, err := typedObjects(ctx, r, classes)
		if err != nil {
			return err
		}
		if stats.ObjectsDeleted, err = deleteNodes(ctx, r, uriSet(objects), entity.LabelObject); err != nil {
			return err
		}
		stats.ClassesDeleted, err = deleteNodes(ctx, r, classes, entity.LabelClass)
		return err
	})
	if err != nil {
		return CascadeStats{}, err
	}
	if stats.ClassesDeleted > 0 {
		e.mutated(ctx, events.KindClass, events.OpDeleted, uri, stats.asMap())
	}
	return stats, nil
}

// deleteNodes detach-deletes the nodes at uris and returns how many went.
func deleteNodes(ctx context.Context, r graphstore.Runner, uris []string, label string) (int, error) {
	if len(uris) == 0 {
		return 0, nil
	}
	q, err := query.DeleteNodes(uris, true, label)
	rows, err := exec(ctx, r, q, err)
	if err != nil {
		return 0, err
	}
	return graphstore.SumCount(rows), nil
}
