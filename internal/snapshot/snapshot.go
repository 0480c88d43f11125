// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package snapshot exports an ontology to a YAML document and replays such a
// document through the engine.
package snapshot

import (
	"bytes"
	"context"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/ontology"
	ontoerr "github.com/sigil-dev/ontograph/pkg/errors"
)

// CurrentVersion is written by Export and accepted by Parse.
const CurrentVersion = 1

// Document is the YAML form of an ontology.
type Document struct {
	Version int      `yaml:"version"`
	Classes []Class  `yaml:"classes"`
	Objects []Object `yaml:"objects,omitempty"`
}

// Class is a class with its parents and the properties whose domain it is.
type Class struct {
	URI              string            `yaml:"uri"`
	Title            string            `yaml:"title,omitempty"`
	Description      string            `yaml:"description,omitempty"`
	Parents          []string          `yaml:"parents,omitempty"`
	Properties       map[string]any    `yaml:"properties,omitempty"`
	Attributes       []Attribute       `yaml:"attributes,omitempty"`
	ObjectAttributes []ObjectAttribute `yaml:"object_attributes,omitempty"`
}

// Attribute is a datatype property.
type Attribute struct {
	URI        string         `yaml:"uri,omitempty"`
	Title      string         `yaml:"title"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

// ObjectAttribute is an object property and its range class.
type ObjectAttribute struct {
	URI        string         `yaml:"uri,omitempty"`
	Title      string         `yaml:"title"`
	Range      string         `yaml:"range"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

// Object is an object with its outgoing instance relations. Class is the
// class the object is created under; AlsoClasses are further TYPE_OF links.
type Object struct {
	URI         string         `yaml:"uri"`
	Class       string         `yaml:"class"`
	AlsoClasses []string       `yaml:"also_classes,omitempty"`
	Title       string         `yaml:"title,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Properties  map[string]any `yaml:"properties,omitempty"`
	Relations   []Relation     `yaml:"relations,omitempty"`
}

// Relation links an object to Target through the object property at
// Property.
type Relation struct {
	Property string `yaml:"property"`
	Target   string `yaml:"target"`
}

// Engine is the part of the ontology engine a snapshot needs.
type Engine interface {
	GetOntology(ctx context.Context) ([]ontology.NodeArcs, error)
	CreateClass(ctx context.Context, in ontology.ClassInput) (entity.Node, error)
	UpdateClass(ctx context.Context, uri string, patch ontology.ClassPatch) (*entity.Node, error)
	AddClassParent(ctx context.Context, parentURI, targetURI string) (bool, error)
	AddClassAttribute(ctx context.Context, in ontology.AttributeInput) (*entity.Node, error)
	AddClassObjectAttribute(ctx context.Context, in ontology.ObjectAttributeInput) (*entity.Node, error)
	CreateObject(ctx context.Context, in ontology.ObjectInput) (*entity.Node, error)
	AddObjectClass(ctx context.Context, uri, classURI string) (bool, error)
	LinkObject(ctx context.Context, uri string, rel ontology.Relation) (bool, error)
}

// Parse decodes YAML data into a Document and validates it.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ontoerr.Errorf(ontoerr.CodeSnapshotParseInvalidFormat, "snapshot parse: %s", err)
	}
	if errs := doc.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}
	return &doc, nil
}

// Marshal encodes doc as YAML with two-space indentation.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, ontoerr.Wrap(err, ontoerr.CodeSnapshotParseInvalidFormat, "encoding snapshot")
	}
	if err := enc.Close(); err != nil {
		return nil, ontoerr.Wrap(err, ontoerr.CodeSnapshotParseInvalidFormat, "encoding snapshot")
	}
	return buf.Bytes(), nil
}

// Validate checks that the document can be replayed. It returns every
// problem found rather than stopping at the first one.
func (d *Document) Validate() []error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, ontoerr.Errorf(ontoerr.CodeSnapshotParseInvalidFormat, "snapshot validation: "+format, args...))
	}

	if d.Version != 0 && d.Version != CurrentVersion {
		invalid("unsupported version %d", d.Version)
	}

	seen := map[string]bool{}
	claim := func(uri, what string) {
		if uri == "" {
			return
		}
		if seen[uri] {
			invalid("%s uri %q is used more than once", what, uri)
		}
		seen[uri] = true
	}

	for i, c := range d.Classes {
		if strings.TrimSpace(c.URI) == "" {
			invalid("classes[%d]: uri must not be empty", i)
		}
		claim(c.URI, "class")
		for j, a := range c.Attributes {
			if strings.TrimSpace(a.Title) == "" {
				invalid("classes[%d].attributes[%d]: title must not be empty", i, j)
			}
			claim(a.URI, "attribute")
		}
		for j, a := range c.ObjectAttributes {
			if strings.TrimSpace(a.Title) == "" {
				invalid("classes[%d].object_attributes[%d]: title must not be empty", i, j)
			}
			if strings.TrimSpace(a.Range) == "" {
				invalid("classes[%d].object_attributes[%d]: range must not be empty", i, j)
			}
			claim(a.URI, "object attribute")
		}
	}
	for i, o := range d.Objects {
		if strings.TrimSpace(o.Class) == "" {
			invalid("objects[%d]: class must not be empty", i)
		}
		claim(o.URI, "object")
		for j, c := range o.AlsoClasses {
			if strings.TrimSpace(c) == "" {
				invalid("objects[%d].also_classes[%d]: class must not be empty", i, j)
			}
		}
		for j, r := range o.Relations {
			if r.Property == "" || r.Target == "" {
				invalid("objects[%d].relations[%d]: property and target are required", i, j)
			}
		}
	}
	return errs
}
