// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package entity converts raw graph records into the canonical Node and Arc
// values handed across the engine boundary, and back into write parameters.
package entity

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"

	"github.com/sigil-dev/ontograph/internal/graphstore"
)

// Labels used by the ontology model.
const (
	LabelClass            = "Class"
	LabelObject           = "Object"
	LabelDatatypeProperty = "DatatypeProperty"
	LabelObjectProperty   = "ObjectProperty"
)

// Relation types used by the ontology model.
const (
	RelSubclassOf = "SUBCLASS_OF"
	RelDomain     = "DOMAIN"
	RelRange      = "RANGE"
	RelTypeOf     = "TYPE_OF"
)

// System property names stored on every node.
const (
	PropURI         = "uri"
	PropTitle       = "title"
	PropDescription = "description"
)

// IsSystemField reports whether name is one of uri, title or description.
func IsSystemField(name string) bool {
	return name == PropURI || name == PropTitle || name == PropDescription
}

// Node is the canonical form of a graph vertex.
type Node struct {
	ID          string
	URI         string
	Title       string
	Description string
	Labels      []string
	Properties  map[string]any
}

// HasLabel reports whether the node carries label.
func (n Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// IsZero reports whether n was decoded from nothing.
func (n Node) IsZero() bool {
	return n.ID == "" && n.URI == "" && len(n.Labels) == 0
}

type nodeJSON struct {
	Type        string         `json:"_type"`
	ID          string         `json:"id"`
	Labels      []string       `json:"labels"`
	URI         string         `json:"uri"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Properties  map[string]any `json:"properties"`
}

// MarshalJSON emits the node with its "_type":"node" discriminator.
func (n Node) MarshalJSON() ([]byte, error) {
	labels := n.Labels
	if labels == nil {
		labels = []string{}
	}
	props := n.Properties
	if props == nil {
		props = map[string]any{}
	}
	return json.Marshal(nodeJSON{
		Type:        "node",
		ID:          n.ID,
		Labels:      labels,
		URI:         n.URI,
		Title:       n.Title,
		Description: n.Description,
		Properties:  props,
	})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Node{
		ID:          raw.ID,
		URI:         raw.URI,
		Title:       raw.Title,
		Description: raw.Description,
		Labels:      raw.Labels,
		Properties:  raw.Properties,
	}
	return nil
}

// Arc is the canonical form of a graph relationship.
type Arc struct {
	ID         string
	Type       string
	From       string // uri of the start node
	To         string // uri of the end node
	StartID    string
	EndID      string
	Properties map[string]any
}

type arcJSON struct {
	Type       string         `json:"_type"`
	ID         string         `json:"id"`
	RelType    string         `json:"type"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	Properties map[string]any `json:"properties"`
}

// MarshalJSON emits the arc with its "_type":"rel" discriminator.
func (a Arc) MarshalJSON() ([]byte, error) {
	props := a.Properties
	if props == nil {
		props = map[string]any{}
	}
	return json.Marshal(arcJSON{
		Type:       "rel",
		ID:         a.ID,
		RelType:    a.Type,
		Start:      a.StartID,
		End:        a.EndID,
		From:       a.From,
		To:         a.To,
		Properties: props,
	})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (a *Arc) UnmarshalJSON(data []byte) error {
	var raw arcJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Arc{
		ID:         raw.ID,
		Type:       raw.RelType,
		From:       raw.From,
		To:         raw.To,
		StartID:    raw.Start,
		EndID:      raw.End,
		Properties: raw.Properties,
	}
	return nil
}

// DecodeNode converts a raw column into a Node. Anything other than a
// RawNode decodes to the zero Node; missing or oddly typed fields degrade to
// empty strings.
func DecodeNode(v graphstore.Value) Node {
	raw, ok := v.(graphstore.RawNode)
	if !ok {
		if v != nil {
			slog.Debug("decoding non-node value as empty node", "type", fmt.Sprintf("%T", v))
		}
		return Node{}
	}

	n := Node{
		ID:          raw.ID,
		URI:         text(raw.Props[PropURI]),
		Title:       text(raw.Props[PropTitle]),
		Description: text(raw.Props[PropDescription]),
		Labels:      append([]string(nil), raw.Labels...),
		Properties:  make(map[string]any, len(raw.Props)),
	}
	for k, val := range raw.Props {
		if IsSystemField(k) {
			continue
		}
		n.Properties[k] = val
	}
	if n.URI == "" {
		slog.Debug("decoded node without uri", "id", raw.ID)
	}
	return n
}

// DecodeArc converts a raw edge plus its endpoints into an Arc. The
// endpoints may be full nodes or scalar uris.
func DecodeArc(edge, from, to graphstore.Value) Arc {
	raw, ok := edge.(graphstore.RawEdge)
	if !ok {
		if edge != nil {
			slog.Debug("decoding non-edge value as empty arc", "type", fmt.Sprintf("%T", edge))
		}
		return Arc{From: endpointURI(from), To: endpointURI(to)}
	}
	return Arc{
		ID:         raw.ID,
		Type:       raw.Type,
		From:       endpointURI(from),
		To:         endpointURI(to),
		StartID:    raw.StartID,
		EndID:      raw.EndID,
		Properties: maps.Clone(nonNil(raw.Props)),
	}
}

// EncodeParams is the inverse of DecodeNode for writes: the returned map is
// suitable as the property map of a created or overwritten node.
func EncodeParams(n Node) map[string]any {
	params := make(map[string]any, len(n.Properties)+3)
	for k, v := range n.Properties {
		if IsSystemField(k) {
			continue
		}
		params[k] = v
	}
	params[PropURI] = n.URI
	params[PropTitle] = n.Title
	params[PropDescription] = n.Description
	return params
}

func endpointURI(v graphstore.Value) string {
	switch e := v.(type) {
	case graphstore.RawNode:
		return text(e.Props[PropURI])
	case graphstore.Scalar:
		return text(e.V)
	}
	return ""
}

func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
