// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package snapshot

import (
	"cmp"
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/ontology"
)

// Export reads the whole graph and returns it as a Document. Classes come
// parents first. Nodes the document cannot express (properties without a
// domain, objects without a class, relations whose type matches no object
// property) are left out and logged.
func Export(ctx context.Context, engine Engine) (*Document, error) {
	all, err := engine.GetOntology(ctx)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "snapshot")

	byURI := make(map[string]ontology.NodeArcs, len(all))
	var classNodes []entity.Node
	var classArcs []entity.Arc
	for _, na := range all {
		byURI[na.Node.URI] = na
		if na.Node.HasLabel(entity.LabelClass) {
			classNodes = append(classNodes, na.Node)
			classArcs = append(classArcs, na.Arcs...)
		}
	}
	h := ontology.NewHierarchy(classNodes, classArcs)

	classes := make(map[string]*Class, h.Len())
	doc := &Document{Version: CurrentVersion, Classes: make([]Class, 0, h.Len())}
	for _, uri := range h.Order() {
		n, _ := h.Class(uri)
		doc.Classes = append(doc.Classes, Class{
			URI:         n.URI,
			Title:       n.Title,
			Description: n.Description,
			Parents:     h.Parents(uri),
			Properties:  nonEmpty(n.Properties),
		})
	}
	for i := range doc.Classes {
		classes[doc.Classes[i].URI] = &doc.Classes[i]
	}

	domains := domainsOf(all)

	// object properties by title, for mapping instance arcs back to them
	opsByTitle := map[string][]opRef{}

	for _, na := range all {
		n := na.Node
		switch {
		case n.HasLabel(entity.LabelDatatypeProperty):
			domain := domains[n.URI]
			c, ok := classes[domain]
			if !ok {
				logger.Debug("datatype property without domain left out", "uri", n.URI)
				continue
			}
			c.Attributes = append(c.Attributes, Attribute{URI: n.URI, Title: n.Title, Properties: nonEmpty(n.Properties)})
		case n.HasLabel(entity.LabelObjectProperty):
			domain := domains[n.URI]
			rng := target(na.Arcs, entity.RelRange)
			c, ok := classes[domain]
			if !ok || rng == "" {
				logger.Debug("object property without domain or range left out", "uri", n.URI)
				continue
			}
			c.ObjectAttributes = append(c.ObjectAttributes, ObjectAttribute{
				URI: n.URI, Title: n.Title, Range: rng, Properties: nonEmpty(n.Properties),
			})
			opsByTitle[n.Title] = append(opsByTitle[n.Title], opRef{uri: n.URI, domain: domain})
		}
	}
	for i := range doc.Classes {
		c := &doc.Classes[i]
		slices.SortFunc(c.Attributes, func(a, b Attribute) int { return cmp.Compare(a.Title, b.Title) })
		slices.SortFunc(c.ObjectAttributes, func(a, b ObjectAttribute) int { return cmp.Compare(a.Title, b.Title) })
	}

	for _, na := range all {
		n := na.Node
		if !n.HasLabel(entity.LabelObject) {
			continue
		}
		var types []string
		for _, a := range na.Arcs {
			if _, ok := classes[a.To]; ok && a.Type == entity.RelTypeOf && !slices.Contains(types, a.To) {
				types = append(types, a.To)
			}
		}
		if len(types) == 0 {
			logger.Debug("object without class left out", "uri", n.URI)
			continue
		}
		slices.Sort(types)
		obj := Object{
			URI:         n.URI,
			Class:       types[0],
			AlsoClasses: types[1:],
			Title:       n.Title,
			Description: n.Description,
			Properties:  nonEmpty(n.Properties),
		}
		if len(obj.AlsoClasses) == 0 {
			obj.AlsoClasses = nil
		}
		var lineage []string
		for _, class := range types {
			lineage = append(lineage, h.Ancestors(class)...)
		}
		lineage = append(lineage, types...)
		for _, a := range na.Arcs {
			if ontology.IsStructural(a.Type) {
				continue
			}
			if _, ok := byURI[a.To]; !ok {
				continue
			}
			op := pickProperty(opsByTitle[a.Type], lineage)
			if op == "" {
				logger.Debug("relation without matching object property left out",
					"uri", n.URI, "type", a.Type, "target", a.To)
				continue
			}
			obj.Relations = append(obj.Relations, Relation{Property: op, Target: a.To})
		}
		slices.SortFunc(obj.Relations, func(a, b Relation) int {
			return cmp.Or(cmp.Compare(a.Property, b.Property), cmp.Compare(a.Target, b.Target))
		})
		doc.Objects = append(doc.Objects, obj)
	}
	slices.SortFunc(doc.Objects, func(a, b Object) int { return cmp.Compare(a.URI, b.URI) })
	return doc, nil
}

type opRef struct {
	uri    string
	domain string
}

// pickProperty prefers the object property whose domain lies on the
// object's class lineage, falling back to the first one by uri.
func pickProperty(candidates []opRef, lineage []string) string {
	if len(candidates) == 0 {
		return ""
	}
	sorted := slices.Clone(candidates)
	slices.SortFunc(sorted, func(a, b opRef) int { return cmp.Compare(a.uri, b.uri) })
	for _, c := range sorted {
		if slices.Contains(lineage, c.domain) {
			return c.uri
		}
	}
	return sorted[0].uri
}

// domainsOf maps each property uri to its domain class. DOMAIN arcs count in
// either orientation; the smallest class uri wins.
func domainsOf(all []ontology.NodeArcs) map[string]string {
	out := map[string]string{}
	for _, na := range all {
		fromClass := na.Node.HasLabel(entity.LabelClass)
		for _, a := range na.Arcs {
			if a.Type != entity.RelDomain {
				continue
			}
			prop, class := a.From, a.To
			if fromClass {
				prop, class = a.To, a.From
			}
			if cur, ok := out[prop]; !ok || class < cur {
				out[prop] = class
			}
		}
	}
	return out
}

// target returns the smallest target uri among arcs of type rel.
func target(arcs []entity.Arc, rel string) string {
	var out string
	for _, a := range arcs {
		if a.Type == rel && (out == "" || a.To < out) {
			out = a.To
		}
	}
	return out
}

func nonEmpty(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return maps.Clone(m)
}
