// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package ontology

import (
	"cmp"
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/events"
	"github.com/sigil-dev/ontograph/internal/graphstore"
	"github.com/sigil-dev/ontograph/internal/query"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// Signature lists the properties an object of a class may carry.
type Signature struct {
	DatatypeProperties []entity.Node       `json:"datatype_properties"`
	ObjectProperties   []ObjectPropertySig `json:"object_properties"`
}

// ObjectPropertySig is an object property with its resolved range class.
type ObjectPropertySig struct {
	Property entity.Node  `json:"property"`
	Range    *entity.Node `json:"range"`
}

// Allowed returns the property names an object may be written with: every
// signature title plus uri, title and description.
func (s Signature) Allowed() map[string]bool {
	allowed := map[string]bool{
		entity.PropURI:         true,
		entity.PropTitle:       true,
		entity.PropDescription: true,
	}
	for _, dp := range s.DatatypeProperties {
		if dp.Title != "" {
			allowed[dp.Title] = true
		}
	}
	for _, op := range s.ObjectProperties {
		if op.Property.Title != "" {
			allowed[op.Property.Title] = true
		}
	}
	return allowed
}

// AttributeInput describes a datatype property to attach to a class.
type AttributeInput struct {
	ClassURI   string
	Title      string
	URI        string
	Properties map[string]any
}

// ObjectAttributeInput describes an object property to attach to a class.
// Title becomes the relation type of instance links, so it must be a safe
// identifier.
type ObjectAttributeInput struct {
	ClassURI   string
	Title      string
	RangeURI   string
	URI        string
	Properties map[string]any
}

// AttributeDeleteStats reports what DeleteClassAttribute removed.
type AttributeDeleteStats struct {
	Deleted        bool `json:"attribute_node_deleted"`
	ObjectsTouched int  `json:"objects_touched"`
}

// ObjectAttributeDeleteStats reports what DeleteClassObjectAttribute removed.
type ObjectAttributeDeleteStats struct {
	RelationsDeleted int  `json:"relations_deleted"`
	Deleted          bool `json:"property_node_deleted"`
}

// CollectSignature returns the datatype and object properties declared on
// the class at uri and, under ScopeInherited, on all of its ancestors. A
// missing class has an empty signature.
func (e *Engine) CollectSignature(ctx context.Context, uri string) (Signature, error) {
	if uri == "" {
		return emptySignature(), nil
	}
	return e.signature(ctx, []string{uri})
}

func emptySignature() Signature {
	return Signature{DatatypeProperties: []entity.Node{}, ObjectProperties: []ObjectPropertySig{}}
}

func (e *Engine) signature(ctx context.Context, classURIs []string) (Signature, error) {
	scope := slices.Clone(classURIs)
	if e.scope == ScopeInherited {
		for _, uri := range classURIs {
			ancestors, err := closure(ctx, e.store, uri, query.Out)
			if err != nil {
				return Signature{}, err
			}
			scope = append(scope, uriSet(ancestors)...)
		}
		slices.Sort(scope)
		scope = slices.Compact(scope)
	}

	sig := emptySignature()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dps, err := attached(gctx, e.store, scope, entity.LabelDatatypeProperty)
		if err != nil {
			return err
		}
		sig.DatatypeProperties = dps
		return nil
	})
	g.Go(func() error {
		q, err := query.Attached(scope, entity.LabelObjectProperty, entity.RelDomain, entity.RelRange, entity.LabelClass)
		rows, err := exec(gctx, e.store, q, err)
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, row := range rows {
			p := entity.DecodeNode(row[query.ColProperty])
			if p.IsZero() || seen[p.URI] {
				continue
			}
			seen[p.URI] = true
			entry := ObjectPropertySig{Property: p}
			if target := entity.DecodeNode(row[query.ColRange]); !target.IsZero() {
				entry.Range = &target
			}
			sig.ObjectProperties = append(sig.ObjectProperties, entry)
		}
		slices.SortFunc(sig.ObjectProperties, func(a, b ObjectPropertySig) int {
			return byTitle(a.Property, b.Property)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

// attached returns the property nodes labeled label that have a DOMAIN edge
// to any class in classURIs, in either orientation.
func attached(ctx context.Context, r graphstore.Runner, classURIs []string, label string) ([]entity.Node, error) {
	if len(classURIs) == 0 {
		return []entity.Node{}, nil
	}
	q, err := query.Attached(classURIs, label, entity.RelDomain, "", entity.LabelClass)
	rows, err := exec(ctx, r, q, err)
	if err != nil {
		return nil, err
	}
	nodes := decodeAll(rows, query.ColProperty)
	slices.SortFunc(nodes, byTitle)
	return nodes, nil
}

func byTitle(a, b entity.Node) int {
	return cmp.Or(cmp.Compare(a.Title, b.Title), cmp.Compare(a.URI, b.URI))
}

// AddClassAttribute creates a datatype property with a DOMAIN edge to the
// class. It returns nil when the class does not exist.
func (e *Engine) AddClassAttribute(ctx context.Context, in AttributeInput) (*entity.Node, error) {
	if in.Title == "" {
		return nil, ontoerr.New(ontoerr.CodeOntologyInputInvalid, "attribute title is required",
			ontoerr.FieldClass(in.ClassURI))
	}
	if entity.IsSystemField(in.Title) {
		return nil, ontoerr.Errorf(ontoerr.CodeOntologyInputInvalid, "attribute title %q is reserved", in.Title)
	}
	created, err := e.createProperty(ctx, entity.LabelDatatypeProperty, in.ClassURI, "", in.Title, in.URI, in.Properties)
	if err != nil || created == nil {
		return created, err
	}
	e.mutated(ctx, events.KindDatatypeProperty, events.OpCreated, created.URI, nil)
	return created, nil
}

// AddClassObjectAttribute creates an object property with DOMAIN and RANGE
// edges. It returns nil when either class does not exist.
func (e *Engine) AddClassObjectAttribute(ctx context.Context, in ObjectAttributeInput) (*entity.Node, error) {
	if err := query.CheckIdentifier(in.Title); err != nil {
		return nil, err
	}
	if IsStructural(in.Title) || entity.IsSystemField(in.Title) {
		return nil, ontoerr.Errorf(ontoerr.CodeOntologyInputInvalid, "object attribute title %q is reserved", in.Title)
	}
	if in.RangeURI == "" {
		return nil, ontoerr.New(ontoerr.CodeOntologyInputInvalid, "range class uri is required",
			ontoerr.FieldClass(in.ClassURI))
	}
	created, err := e.createProperty(ctx, entity.LabelObjectProperty, in.ClassURI, in.RangeURI, in.Title, in.URI, in.Properties)
	if err != nil || created == nil {
		return created, err
	}
	e.mutated(ctx, events.KindObjectProperty, events.OpCreated, created.URI, nil)
	return created, nil
}

func (e *Engine) createProperty(ctx context.Context, label, classURI, rangeURI, title, uri string, extra map[string]any) (*entity.Node, error) {
	if classURI == "" {
		return nil, nil
	}
	if uri == "" {
		var err error
		if uri, err = e.newKey(); err != nil {
			return nil, err
		}
	}
	node := entity.Node{URI: uri, Title: title, Properties: map[string]any{}}
	for k, v := range extra {
		switch k {
		case entity.PropURI, entity.PropTitle:
		case entity.PropDescription:
			node.Description, _ = v.(string)
		default:
			node.Properties[k] = v
		}
	}

	var created *entity.Node
	err := graphstore.Atomically(ctx, e.store, func(r graphstore.Runner) error {
		created = nil
		for _, c := range []string{classURI, rangeURI} {
			if c == "" {
				continue
			}
			cls, err := getNode(ctx, r, c, entity.LabelClass)
			if err != nil || cls == nil {
				return err
			}
		}
		q, err := query.CreateNode(entity.EncodeParams(node), label)
		rows, err := exec(ctx, r, q, err)
		if err != nil {
			return err
		}
		if _, err := link(ctx, r, uri, entity.RelDomain, classURI, label, entity.LabelClass); err != nil {
			return err
		}
		if rangeURI != "" {
			if _, err := link(ctx, r, uri, entity.RelRange, rangeURI, label, entity.LabelClass); err != nil {
				return err
			}
		}
		created = first(rows, query.ColNode)
		return nil
	})
	return created, err
}

// DeleteClassAttribute removes a datatype property of the class, found by
// uri or else by title, and clears that field on the class's objects. Under
// ScopeInherited the objects of every descendant class are cleared too.
func (e *Engine) DeleteClassAttribute(ctx context.Context, classURI, name, uri string) (AttributeDeleteStats, error) {
	var stats AttributeDeleteStats
	if name == "" && uri == "" {
		return stats, nil
	}
	err := graphstore.Atomically(ctx, e.store, func(r graphstore.Runner) error {
		stats = AttributeDeleteStats{}
		dp, err := findAttribute(ctx, r, classURI, name, uri)
		if err != nil || dp == nil {
			return err
		}
		n, err := deleteNodes(ctx, r, []string{dp.URI}, entity.LabelDatatypeProperty)
		if err != nil {
			return err
		}
		stats.Deleted = n > 0

		field := dp.Title
		if field == "" || entity.IsSystemField(field) || classURI == "" {
			return nil
		}
		classes := []string{classURI}
		if e.scope == ScopeInherited {
			desc, err := closure(ctx, r, classURI, query.In)
			if err != nil {
				return err
			}
			classes = append(classes, uriSet(desc)...)
		}
		q, err := query.ClearProperty(classes, field, entity.RelTypeOf,
			[]string{entity.LabelClass}, []string{entity.LabelObject})
		rows, err := exec(ctx, r, q, err)
		if err != nil {
			return err
		}
		stats.ObjectsTouched = graphstore.SumCount(rows)
		return nil
	})
	if err != nil {
		return AttributeDeleteStats{}, err
	}
	if stats.Deleted {
		e.mutated(ctx, events.KindDatatypeProperty, events.OpDeleted, classURI, map[string]int{
			"objects_touched": stats.ObjectsTouched,
		})
	}
	return stats, nil
}

func findAttribute(ctx context.Context, r graphstore.Runner, classURI, name, uri string) (*entity.Node, error) {
	if uri != "" {
		return getNode(ctx, r, uri, entity.LabelDatatypeProperty)
	}
	declared, err := attached(ctx, r, []string{classURI}, entity.LabelDatatypeProperty)
	if err != nil {
		return nil, err
	}
	for _, dp := range declared {
		if dp.Title == name {
			return &dp, nil
		}
	}
	return nil, nil
}

// DeleteClassObjectAttribute removes the instance relations typed by the
// object property at uri, then the property node itself.
func (e *Engine) DeleteClassObjectAttribute(ctx context.Context, uri string) (ObjectAttributeDeleteStats, error) {
	var stats ObjectAttributeDeleteStats
	if uri == "" {
		return stats, nil
	}
	err := graphstore.Atomically(ctx, e.store, func(r graphstore.Runner) error {
		stats = ObjectAttributeDeleteStats{}
		op, err := getNode(ctx, r, uri, entity.LabelObjectProperty)
		if err != nil {
			return err
		}
		target := entity.Node{URI: uri}
		if op != nil {
			target = *op
		}
		if stats.RelationsDeleted, err = e.deleteInstanceRelations(ctx, r, []entity.Node{target}); err != nil {
			return err
		}
		n, err := deleteNodes(ctx, r, []string{uri}, entity.LabelObjectProperty)
		stats.Deleted = n > 0
		return err
	})
	if err != nil {
		return ObjectAttributeDeleteStats{}, err
	}
	if stats.Deleted || stats.RelationsDeleted > 0 {
		e.mutated(ctx, events.KindObjectProperty, events.OpDeleted, uri, map[string]int{
			"relations_deleted": stats.RelationsDeleted,
		})
	}
	return stats, nil
}

// deleteInstanceRelations removes every edge typed by one of the object
// properties in ops and returns the number removed. Instance edges are keyed
// by each property's uri, and by its title when no surviving object
// property shares that title. Names that are not safe identifiers cannot
// type an edge and are skipped, as are the structural relation types.
func (e *Engine) deleteInstanceRelations(ctx context.Context, r graphstore.Runner, ops []entity.Node) (int, error) {
	deleting := make(map[string]bool, len(ops))
	for _, op := range ops {
		deleting[op.URI] = true
	}

	var types []string
	for _, op := range ops {
		types = append(types, op.URI)
		if op.Title == "" || op.Title == op.URI {
			continue
		}
		shared, err := titleShared(ctx, r, op.Title, deleting)
		if err != nil {
			return 0, err
		}
		if !shared {
			types = append(types, op.Title)
		}
	}
	slices.Sort(types)
	types = slices.Compact(types)

	total := 0
	for _, rel := range types {
		if !query.ValidIdentifier(rel) || IsStructural(rel) {
			e.logger.Debug("skipping relation cleanup for unusable type", "type", rel)
			continue
		}
		q, err := query.DeleteArcs(rel)
		rows, err := exec(ctx, r, q, err)
		if err != nil {
			return 0, err
		}
		total += graphstore.SumCount(rows)
	}
	return total, nil
}

// titleShared reports whether an object property outside excluded carries
// title.
func titleShared(ctx context.Context, r graphstore.Runner, title string, excluded map[string]bool) (bool, error) {
	q, err := query.MatchProperty(entity.PropTitle, title, entity.LabelObjectProperty)
	rows, err := exec(ctx, r, q, err)
	if err != nil {
		return false, err
	}
	for _, n := range decodeAll(rows, query.ColNode) {
		if !excluded[n.URI] {
			return true, nil
		}
	}
	return false, nil
}
