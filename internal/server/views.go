// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/ontology"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// NodeView is the wire form of a node.
type NodeView struct {
	Type        string         `json:"_type" enum:"node"`
	ID          string         `json:"id" doc:"Store-assigned element id"`
	Labels      []string       `json:"labels"`
	URI         string         `json:"uri"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Properties  map[string]any `json:"properties"`
}

// ArcView is the wire form of a relationship.
type ArcView struct {
	Type       string         `json:"_type" enum:"rel"`
	ID         string         `json:"id"`
	RelType    string         `json:"type"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	From       string         `json:"from" doc:"uri of the start node"`
	To         string         `json:"to" doc:"uri of the end node"`
	Properties map[string]any `json:"properties"`
}

// NodeArcsView is a node with its outgoing arcs.
type NodeArcsView struct {
	Node NodeView  `json:"node"`
	Arcs []ArcView `json:"arcs"`
}

// ObjectPropertyView is an object property with its resolved range.
type ObjectPropertyView struct {
	Property NodeView  `json:"property"`
	Range    *NodeView `json:"range"`
}

// SignatureView lists the properties an object of a class may carry.
type SignatureView struct {
	DatatypeProperties []NodeView           `json:"datatype_properties"`
	ObjectProperties   []ObjectPropertyView `json:"object_properties"`
}

func nodeView(n entity.Node) NodeView {
	labels := n.Labels
	if labels == nil {
		labels = []string{}
	}
	props := n.Properties
	if props == nil {
		props = map[string]any{}
	}
	return NodeView{
		Type:        "node",
		ID:          n.ID,
		Labels:      labels,
		URI:         n.URI,
		Title:       n.Title,
		Description: n.Description,
		Properties:  props,
	}
}

func nodeViews(nodes []entity.Node) []NodeView {
	out := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeView(n))
	}
	return out
}

func arcView(a entity.Arc) ArcView {
	props := a.Properties
	if props == nil {
		props = map[string]any{}
	}
	return ArcView{
		Type:       "rel",
		ID:         a.ID,
		RelType:    a.Type,
		Start:      a.StartID,
		End:        a.EndID,
		From:       a.From,
		To:         a.To,
		Properties: props,
	}
}

func signatureView(sig ontology.Signature) SignatureView {
	out := SignatureView{
		DatatypeProperties: nodeViews(sig.DatatypeProperties),
		ObjectProperties:   make([]ObjectPropertyView, 0, len(sig.ObjectProperties)),
	}
	for _, op := range sig.ObjectProperties {
		v := ObjectPropertyView{Property: nodeView(op.Property)}
		if op.Range != nil {
			r := nodeView(*op.Range)
			v.Range = &r
		}
		out.ObjectProperties = append(out.ObjectProperties, v)
	}
	return out
}

// apiError converts an engine error into a huma error carrying the status
// from the error taxonomy. Server-side failures are logged and their detail
// withheld from the client.
func apiError(err error, msg string) error {
	status := ontoerr.HTTPStatus(err)
	code := string(ontoerr.CodeOf(err))
	if status >= 500 {
		slog.Error(msg, "error", err, "code", code)
		return huma.NewError(status, msg, &huma.ErrorDetail{Location: "code", Value: code})
	}
	return huma.NewError(status, err.Error(), &huma.ErrorDetail{Location: "code", Value: code})
}
