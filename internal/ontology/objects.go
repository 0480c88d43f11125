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

// Relation directions for Relation.Direction.
const (
	// Forward links object -> target.
	Forward = 1
	// Backward links target -> object.
	Backward = -1
)

// Relation asks CreateObject to link the new object to an existing node
// through the object property at RelURI.
type Relation struct {
	// Direction is Forward, Backward, or zero for Forward. Any other value
	// skips the relation.
	Direction int    `json:"direction,omitempty" yaml:"direction,omitempty"`
	TargetURI string `json:"target_uri" yaml:"target_uri"`
	RelURI    string `json:"rel_uri" yaml:"rel_uri"`
}

// ObjectInput describes an object to create.
type ObjectInput struct {
	ClassURI   string
	Properties map[string]any
	Relations  []Relation
}

// GetObject returns the object at uri, or nil when it does not exist.
func (e *Engine) GetObject(ctx context.Context, uri string) (*entity.Node, error) {
	return getNode(ctx, e.store, uri, entity.LabelObject)
}

// DeleteObject detach-deletes the object at uri and reports whether it
// existed.
func (e *Engine) DeleteObject(ctx context.Context, uri string) (bool, error) {
	if uri == "" {
		return false, nil
	}
	n, err := deleteNodes(ctx, e.store, []string{uri}, entity.LabelObject)
	if err != nil || n == 0 {
		return false, err
	}
	e.mutated(ctx, events.KindObject, events.OpDeleted, uri, nil)
	return true, nil
}

// CreateObject validates in.Properties against the class signature, creates
// the object with a TYPE_OF link to the class, and materializes the
// requested relations. Relations whose property or target cannot be
// resolved are skipped. It returns nil when the class does not exist.
func (e *Engine) CreateObject(ctx context.Context, in ObjectInput) (*entity.Node, error) {
	class, err := e.GetClass(ctx, in.ClassURI)
	if err != nil || class == nil {
		return nil, err
	}
	sig, err := e.signature(ctx, []string{in.ClassURI})
	if err != nil {
		return nil, err
	}
	props, err := e.validate(in.ClassURI, in.Properties, sig)
	if err != nil {
		return nil, err
	}

	node := nodeFromProps(props)
	if node.URI == "" {
		if node.URI, err = e.newKey(); err != nil {
			return nil, err
		}
	}

	type edge struct{ from, rel, to string }
	var edges []edge
	for _, rel := range in.Relations {
		relType, err := e.relationType(ctx, rel)
		if err != nil {
			return nil, err
		}
		if relType == "" {
			continue
		}
		switch normalizeDirection(rel.Direction) {
		case Forward:
			edges = append(edges, edge{node.URI, relType, rel.TargetURI})
		case Backward:
			edges = append(edges, edge{rel.TargetURI, relType, node.URI})
		}
	}

	var created *entity.Node
	linked := 0
	err = graphstore.Atomically(ctx, e.store, func(r graphstore.Runner) error {
		created, linked = nil, 0
		q, err := query.CreateNode(entity.EncodeParams(node), entity.LabelObject)
		rows, err := exec(ctx, r, q, err)
		if err != nil {
			return err
		}
		created = first(rows, query.ColNode)
		if _, err := link(ctx, r, node.URI, entity.RelTypeOf, in.ClassURI, entity.LabelObject, entity.LabelClass); err != nil {
			return err
		}
		for _, ed := range edges {
			q, err := query.CreateArc(query.Ref{URI: ed.from}, ed.rel, query.Ref{URI: ed.to}, nil)
			rows, err := exec(ctx, r, q, err)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				e.logger.Debug("relation endpoint not found, skipped", "from", ed.from, "to", ed.to, "type", ed.rel)
				continue
			}
			linked++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if created == nil {
		created = &node
	}
	e.mutated(ctx, events.KindObject, events.OpCreated, node.URI, map[string]int{"relations_created": linked})
	return created, nil
}

// LinkObject materializes one relation for the object at uri under the same
// rules CreateObject applies, and reports whether the edge was created.
func (e *Engine) LinkObject(ctx context.Context, uri string, rel Relation) (bool, error) {
	if uri == "" {
		return false, nil
	}
	relType, err := e.relationType(ctx, rel)
	if err != nil || relType == "" {
		return false, err
	}
	from, to := uri, rel.TargetURI
	if normalizeDirection(rel.Direction) == Backward {
		from, to = to, from
	}
	q, err := query.CreateArc(query.Ref{URI: from}, relType, query.Ref{URI: to}, nil)
	rows, err := exec(ctx, e.store, q, err)
	if err != nil || len(rows) == 0 {
		return false, err
	}
	e.mutated(ctx, events.KindObject, events.OpLinked, uri, map[string]int{"relations_created": 1})
	return true, nil
}

// AddObjectClass gives the object at uri one more TYPE_OF link, to the class
// at classURI, and reports whether a new edge was created. The object's
// properties are not re-validated.
func (e *Engine) AddObjectClass(ctx context.Context, uri, classURI string) (bool, error) {
	if uri == "" || classURI == "" {
		return false, nil
	}
	q, err := query.Neighbors([]string{uri}, entity.RelTypeOf, query.Out,
		[]string{entity.LabelObject}, []string{entity.LabelClass})
	rows, err := exec(ctx, e.store, q, err)
	if err != nil {
		return false, err
	}
	if slices.Contains(uriSet(decodeAll(rows, query.ColNode)), classURI) {
		return false, nil
	}
	ok, err := link(ctx, e.store, uri, entity.RelTypeOf, classURI, entity.LabelObject, entity.LabelClass)
	if err != nil || !ok {
		return false, err
	}
	e.mutated(ctx, events.KindObject, events.OpLinked, uri, map[string]int{"classes_added": 1})
	return true, nil
}

func normalizeDirection(d int) int {
	if d == 0 {
		return Forward
	}
	return d
}

// relationType resolves the instance relation type for rel, or "" when the
// relation must be skipped.
func (e *Engine) relationType(ctx context.Context, rel Relation) (string, error) {
	if rel.TargetURI == "" || rel.RelURI == "" {
		return "", nil
	}
	if d := normalizeDirection(rel.Direction); d != Forward && d != Backward {
		e.logger.Warn("unsupported relation direction, skipped", "rel_uri", rel.RelURI, "direction", rel.Direction)
		return "", nil
	}
	op, err := getNode(ctx, e.store, rel.RelURI, entity.LabelObjectProperty)
	if err != nil {
		return "", err
	}
	if op == nil || op.Title == "" {
		e.logger.Debug("relation property not found, skipped", "rel_uri", rel.RelURI)
		return "", nil
	}
	if !query.ValidIdentifier(op.Title) || IsStructural(op.Title) {
		e.logger.Warn("relation property title is not a usable relation type, skipped",
			"rel_uri", rel.RelURI, "title", op.Title)
		return "", nil
	}
	return op.Title, nil
}

// UpdateObject re-validates props against the signature of the object's
// class and merges them into the object. Unlike the other operations it
// fails with ontology.object.not_found when the object or its class link is
// missing.
func (e *Engine) UpdateObject(ctx context.Context, uri string, props map[string]any) (*entity.Node, error) {
	if uri == "" {
		return nil, notFound(uri)
	}
	q, err := query.Neighbors([]string{uri}, entity.RelTypeOf, query.Out,
		[]string{entity.LabelObject}, []string{entity.LabelClass})
	rows, err := exec(ctx, e.store, q, err)
	if err != nil {
		return nil, err
	}
	classes := uriSet(decodeAll(rows, query.ColNode))
	if len(classes) == 0 {
		return nil, notFound(uri)
	}
	slices.Sort(classes)

	sig, err := e.signature(ctx, classes)
	if err != nil {
		return nil, err
	}
	valid, err := e.validate(classes[0], props, sig)
	if err != nil {
		return nil, err
	}
	delete(valid, entity.PropURI)

	updated, err := updateNode(ctx, e.store, uri, valid, entity.LabelObject)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, notFound(uri)
	}
	e.mutated(ctx, events.KindObject, events.OpUpdated, uri, nil)
	return updated, nil
}

func notFound(uri string) error {
	return ontoerr.New(ontoerr.CodeOntologyObjectNotFound, "object not found or has no class", ontoerr.FieldURI(uri))
}

// validate filters props to the signature. In drop mode unknown names are
// removed with a warning; in reject mode they fail the call.
func (e *Engine) validate(classURI string, props map[string]any, sig Signature) (map[string]any, error) {
	allowed := sig.Allowed()
	valid := make(map[string]any, len(props))
	var dropped []string
	for k, v := range props {
		if allowed[k] {
			valid[k] = v
			continue
		}
		dropped = append(dropped, k)
	}
	if len(dropped) == 0 {
		return valid, nil
	}
	slices.Sort(dropped)
	if e.validation == ValidationReject {
		return nil, ontoerr.New(ontoerr.CodeOntologyObjectValidateInvalid,
			"properties are not part of the class signature",
			ontoerr.FieldClass(classURI), ontoerr.Field("properties", dropped))
	}
	e.metrics.RecordDropped(len(dropped))
	e.logger.Warn("dropping properties outside class signature", "class_uri", classURI, "properties", dropped)
	return valid, nil
}

// nodeFromProps splits validated properties into the system fields and the
// extra property map.
func nodeFromProps(props map[string]any) entity.Node {
	n := entity.Node{Properties: make(map[string]any, len(props))}
	for k, v := range props {
		switch k {
		case entity.PropURI:
			n.URI, _ = v.(string)
		case entity.PropTitle:
			n.Title, _ = v.(string)
		case entity.PropDescription:
			n.Description, _ = v.(string)
		default:
			n.Properties[k] = v
		}
	}
	return n
}
