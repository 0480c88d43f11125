// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sigil-dev/ontograph/internal/entity"
	"github.com/sigil-dev/ontograph/internal/ontology"
)

// Ontology is the engine surface the REST API exposes.
type Ontology interface {
	GetOntology(ctx context.Context) ([]ontology.NodeArcs, error)
	GetRootClasses(ctx context.Context) ([]entity.Node, error)
	GetClass(ctx context.Context, uri string) (*entity.Node, error)
	CreateClass(ctx context.Context, in ontology.ClassInput) (entity.Node, error)
	UpdateClass(ctx context.Context, uri string, patch ontology.ClassPatch) (*entity.Node, error)
	DeleteClass(ctx context.Context, uri string) (ontology.CascadeStats, error)
	GetClassParents(ctx context.Context, uri string) ([]entity.Node, error)
	GetClassChildren(ctx context.Context, uri string) ([]entity.Node, error)
	GetClassObjects(ctx context.Context, uri string) ([]entity.Node, error)
	CollectSignature(ctx context.Context, uri string) (ontology.Signature, error)
	AddClassParent(ctx context.Context, parentURI, targetURI string) (bool, error)
	AddClassAttribute(ctx context.Context, in ontology.AttributeInput) (*entity.Node, error)
	DeleteClassAttribute(ctx context.Context, classURI, name, uri string) (ontology.AttributeDeleteStats, error)
	AddClassObjectAttribute(ctx context.Context, in ontology.ObjectAttributeInput) (*entity.Node, error)
	DeleteClassObjectAttribute(ctx context.Context, uri string) (ontology.ObjectAttributeDeleteStats, error)
	CreateObject(ctx context.Context, in ontology.ObjectInput) (*entity.Node, error)
	GetObject(ctx context.Context, uri string) (*entity.Node, error)
	UpdateObject(ctx context.Context, uri string, props map[string]any) (*entity.Node, error)
	DeleteObject(ctx context.Context, uri string) (bool, error)
	LinkObject(ctx context.Context, uri string, rel ontology.Relation) (bool, error)
}

// RegisterOntology sets the engine and registers the REST routes.
func (s *Server) RegisterOntology(engine Ontology) {
	s.engine = engine
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	// Graph
	huma.Register(s.api, huma.Operation{
		OperationID: "get-ontology",
		Method:      http.MethodGet,
		Path:        "/api/v1/ontology",
		Summary:     "Dump every node with its outgoing relationships",
		Tags:        []string{"ontology"},
	}, s.handleGetOntology)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-root-classes",
		Method:      http.MethodGet,
		Path:        "/api/v1/ontology/roots",
		Summary:     "List classes without a parent",
		Tags:        []string{"ontology"},
	}, s.handleGetRoots)

	// Classes
	huma.Register(s.api, huma.Operation{
		OperationID:   "create-class",
		Method:        http.MethodPost,
		Path:          "/api/v1/classes",
		Summary:       "Create a class",
		Tags:          []string{"classes"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateClass)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-class",
		Method:      http.MethodGet,
		Path:        "/api/v1/classes/{uri}",
		Summary:     "Get a class",
		Tags:        []string{"classes"},
	}, s.handleGetClass)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-class",
		Method:      http.MethodPut,
		Path:        "/api/v1/classes/{uri}",
		Summary:     "Update a class",
		Tags:        []string{"classes"},
	}, s.handleUpdateClass)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-class",
		Method:      http.MethodDelete,
		Path:        "/api/v1/classes/{uri}",
		Summary:     "Delete a class with its subtree, properties and objects",
		Tags:        []string{"classes"},
	}, s.handleDeleteClass)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-class-parents",
		Method:      http.MethodGet,
		Path:        "/api/v1/classes/{uri}/parents",
		Summary:     "List every ancestor of a class",
		Tags:        []string{"classes"},
	}, s.handleGetParents)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-class-children",
		Method:      http.MethodGet,
		Path:        "/api/v1/classes/{uri}/children",
		Summary:     "List every descendant of a class",
		Tags:        []string{"classes"},
	}, s.handleGetChildren)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-class-objects",
		Method:      http.MethodGet,
		Path:        "/api/v1/classes/{uri}/objects",
		Summary:     "List the objects typed to a class",
		Tags:        []string{"classes"},
	}, s.handleGetClassObjects)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-class-signature",
		Method:      http.MethodGet,
		Path:        "/api/v1/classes/{uri}/signature",
		Summary:     "List the properties objects of a class may carry",
		Tags:        []string{"classes"},
	}, s.handleGetSignature)

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-class-parent",
		Method:        http.MethodPost,
		Path:          "/api/v1/classes/{uri}/parents",
		Summary:       "Link a class under a parent",
		Tags:          []string{"classes"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddParent)

	// Properties
	huma.Register(s.api, huma.Operation{
		OperationID:   "add-class-attribute",
		Method:        http.MethodPost,
		Path:          "/api/v1/classes/{uri}/attributes",
		Summary:       "Attach a datatype property to a class",
		Tags:          []string{"properties"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddAttribute)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-class-attribute",
		Method:      http.MethodDelete,
		Path:        "/api/v1/classes/{uri}/attributes/{name}",
		Summary:     "Remove a datatype property and clear it from objects",
		Tags:        []string{"properties"},
	}, s.handleDeleteAttribute)

	huma.Register(s.api, huma.Operation{
		OperationID:   "add-class-object-attribute",
		Method:        http.MethodPost,
		Path:          "/api/v1/classes/{uri}/object-attributes",
		Summary:       "Attach an object property to a class",
		Tags:          []string{"properties"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddObjectAttribute)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-object-attribute",
		Method:      http.MethodDelete,
		Path:        "/api/v1/object-attributes/{uri}",
		Summary:     "Remove an object property and its instance relations",
		Tags:        []string{"properties"},
	}, s.handleDeleteObjectAttribute)

	// Objects
	huma.Register(s.api, huma.Operation{
		OperationID:   "create-object",
		Method:        http.MethodPost,
		Path:          "/api/v1/objects",
		Summary:       "Create an object of a class",
		Tags:          []string{"objects"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateObject)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-object",
		Method:      http.MethodGet,
		Path:        "/api/v1/objects/{uri}",
		Summary:     "Get an object",
		Tags:        []string{"objects"},
	}, s.handleGetObject)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-object",
		Method:      http.MethodPut,
		Path:        "/api/v1/objects/{uri}",
		Summary:     "Update an object's properties",
		Tags:        []string{"objects"},
	}, s.handleUpdateObject)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-object",
		Method:      http.MethodDelete,
		Path:        "/api/v1/objects/{uri}",
		Summary:     "Delete an object",
		Tags:        []string{"objects"},
	}, s.handleDeleteObject)

	huma.Register(s.api, huma.Operation{
		OperationID:   "link-object",
		Method:        http.MethodPost,
		Path:          "/api/v1/objects/{uri}/relations",
		Summary:       "Link an object to another node through an object property",
		Tags:          []string{"objects"},
		DefaultStatus: http.StatusCreated,
	}, s.handleLinkObject)
}

// --- Input/Output types ---

type uriInput struct {
	URI string `path:"uri" doc:"Node uri"`
}

type nodeOutput struct {
	Body NodeView
}

type nodeListOutput struct {
	Body struct {
		Nodes []NodeView `json:"nodes"`
	}
}

func listOutput(nodes []entity.Node) *nodeListOutput {
	out := &nodeListOutput{}
	out.Body.Nodes = nodeViews(nodes)
	return out
}

type ontologyOutput struct {
	Body struct {
		Nodes []NodeArcsView `json:"nodes"`
	}
}

type createClassInput struct {
	Body struct {
		Title       string `json:"title" minLength:"1" doc:"Class title"`
		Description string `json:"description,omitempty"`
		URI         string `json:"uri,omitempty" doc:"Generated when empty"`
		ParentURI   string `json:"parent_uri,omitempty" doc:"Existing class to link the new class under"`
	}
}

type updateClassInput struct {
	URI  string `path:"uri" doc:"Class uri"`
	Body struct {
		Title       *string        `json:"title,omitempty"`
		Description *string        `json:"description,omitempty"`
		Properties  map[string]any `json:"properties,omitempty"`
	}
}

type deleteClassOutput struct {
	Body ontology.CascadeStats
}

type signatureOutput struct {
	Body SignatureView
}

type addParentInput struct {
	URI  string `path:"uri" doc:"Class to link under the parent"`
	Body struct {
		ParentURI string `json:"parent_uri" minLength:"1"`
	}
}

type linkedOutput struct {
	Body struct {
		Linked bool `json:"linked"`
	}
}

type addAttributeInput struct {
	URI  string `path:"uri" doc:"Class uri"`
	Body struct {
		Title      string         `json:"title" minLength:"1"`
		URI        string         `json:"uri,omitempty"`
		Properties map[string]any `json:"properties,omitempty"`
	}
}

type deleteAttributeInput struct {
	URI          string `path:"uri" doc:"Class uri"`
	Name         string `path:"name" doc:"Attribute title"`
	AttributeURI string `query:"attribute_uri" doc:"Attribute uri, preferred over the name when set"`
}

type deleteAttributeOutput struct {
	Body ontology.AttributeDeleteStats
}

type addObjectAttributeInput struct {
	URI  string `path:"uri" doc:"Domain class uri"`
	Body struct {
		Title      string         `json:"title" minLength:"1" doc:"Relation type used for instance links"`
		RangeURI   string         `json:"range_uri" minLength:"1"`
		URI        string         `json:"uri,omitempty"`
		Properties map[string]any `json:"properties,omitempty"`
	}
}

type deleteObjectAttributeOutput struct {
	Body ontology.ObjectAttributeDeleteStats
}

type createObjectInput struct {
	Body struct {
		ClassURI   string              `json:"class_uri" minLength:"1"`
		Properties map[string]any      `json:"properties,omitempty"`
		Relations  []ontology.Relation `json:"relations,omitempty"`
	}
}

type updateObjectInput struct {
	URI  string `path:"uri" doc:"Object uri"`
	Body struct {
		Properties map[string]any `json:"properties"`
	}
}

type deletedOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

type linkObjectInput struct {
	URI  string `path:"uri" doc:"Object uri"`
	Body ontology.Relation
}

// --- Handlers ---

func (s *Server) handleGetOntology(ctx context.Context, _ *struct{}) (*ontologyOutput, error) {
	graph, err := s.engine.GetOntology(ctx)
	if err != nil {
		return nil, apiError(err, "failed to read ontology")
	}
	out := &ontologyOutput{}
	out.Body.Nodes = make([]NodeArcsView, 0, len(graph))
	for _, na := range graph {
		v := NodeArcsView{Node: nodeView(na.Node), Arcs: make([]ArcView, 0, len(na.Arcs))}
		for _, a := range na.Arcs {
			v.Arcs = append(v.Arcs, arcView(a))
		}
		out.Body.Nodes = append(out.Body.Nodes, v)
	}
	return out, nil
}

func (s *Server) handleGetRoots(ctx context.Context, _ *struct{}) (*nodeListOutput, error) {
	roots, err := s.engine.GetRootClasses(ctx)
	if err != nil {
		return nil, apiError(err, "failed to list root classes")
	}
	return listOutput(roots), nil
}

func (s *Server) handleCreateClass(ctx context.Context, input *createClassInput) (*nodeOutput, error) {
	created, err := s.engine.CreateClass(ctx, ontology.ClassInput{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		URI:         input.Body.URI,
		ParentURI:   input.Body.ParentURI,
	})
	if err != nil {
		return nil, apiError(err, "failed to create class")
	}
	return &nodeOutput{Body: nodeView(created)}, nil
}

func (s *Server) handleGetClass(ctx context.Context, input *uriInput) (*nodeOutput, error) {
	uri := input.URI
	class, err := s.engine.GetClass(ctx, uri)
	if err != nil {
		return nil, apiError(err, "failed to read class")
	}
	if class == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("class %q not found", uri))
	}
	return &nodeOutput{Body: nodeView(*class)}, nil
}

func (s *Server) handleUpdateClass(ctx context.Context, input *updateClassInput) (*nodeOutput, error) {
	uri := input.URI
	updated, err := s.engine.UpdateClass(ctx, uri, ontology.ClassPatch{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		Properties:  input.Body.Properties,
	})
	if err != nil {
		return nil, apiError(err, "failed to update class")
	}
	if updated == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("class %q not found", uri))
	}
	return &nodeOutput{Body: nodeView(*updated)}, nil
}

func (s *Server) handleDeleteClass(ctx context.Context, input *uriInput) (*deleteClassOutput, error) {
	stats, err := s.engine.DeleteClass(ctx, input.URI)
	if err != nil {
		return nil, apiError(err, "failed to delete class")
	}
	return &deleteClassOutput{Body: stats}, nil
}

func (s *Server) handleGetParents(ctx context.Context, input *uriInput) (*nodeListOutput, error) {
	nodes, err := s.engine.GetClassParents(ctx, input.URI)
	if err != nil {
		return nil, apiError(err, "failed to list parents")
	}
	return listOutput(nodes), nil
}

func (s *Server) handleGetChildren(ctx context.Context, input *uriInput) (*nodeListOutput, error) {
	nodes, err := s.engine.GetClassChildren(ctx, input.URI)
	if err != nil {
		return nil, apiError(err, "failed to list children")
	}
	return listOutput(nodes), nil
}

func (s *Server) handleGetClassObjects(ctx context.Context, input *uriInput) (*nodeListOutput, error) {
	nodes, err := s.engine.GetClassObjects(ctx, input.URI)
	if err != nil {
		return nil, apiError(err, "failed to list objects")
	}
	return listOutput(nodes), nil
}

func (s *Server) handleGetSignature(ctx context.Context, input *uriInput) (*signatureOutput, error) {
	sig, err := s.engine.CollectSignature(ctx, input.URI)
	if err != nil {
		return nil, apiError(err, "failed to collect signature")
	}
	return &signatureOutput{Body: signatureView(sig)}, nil
}

func (s *Server) handleAddParent(ctx context.Context, input *addParentInput) (*linkedOutput, error) {
	linked, err := s.engine.AddClassParent(ctx, input.Body.ParentURI, input.URI)
	if err != nil {
		return nil, apiError(err, "failed to link parent")
	}
	out := &linkedOutput{}
	out.Body.Linked = linked
	return out, nil
}

func (s *Server) handleAddAttribute(ctx context.Context, input *addAttributeInput) (*nodeOutput, error) {
	classURI := input.URI
	created, err := s.engine.AddClassAttribute(ctx, ontology.AttributeInput{
		ClassURI:   classURI,
		Title:      input.Body.Title,
		URI:        input.Body.URI,
		Properties: input.Body.Properties,
	})
	if err != nil {
		return nil, apiError(err, "failed to add attribute")
	}
	if created == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("class %q not found", classURI))
	}
	return &nodeOutput{Body: nodeView(*created)}, nil
}

func (s *Server) handleDeleteAttribute(ctx context.Context, input *deleteAttributeInput) (*deleteAttributeOutput, error) {
	stats, err := s.engine.DeleteClassAttribute(ctx, input.URI, input.Name, input.AttributeURI)
	if err != nil {
		return nil, apiError(err, "failed to delete attribute")
	}
	return &deleteAttributeOutput{Body: stats}, nil
}

func (s *Server) handleAddObjectAttribute(ctx context.Context, input *addObjectAttributeInput) (*nodeOutput, error) {
	classURI := input.URI
	created, err := s.engine.AddClassObjectAttribute(ctx, ontology.ObjectAttributeInput{
		ClassURI:   classURI,
		Title:      input.Body.Title,
		RangeURI:   input.Body.RangeURI,
		URI:        input.Body.URI,
		Properties: input.Body.Properties,
	})
	if err != nil {
		return nil, apiError(err, "failed to add object attribute")
	}
	if created == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("class %q or range %q not found", classURI, input.Body.RangeURI))
	}
	return &nodeOutput{Body: nodeView(*created)}, nil
}

func (s *Server) handleDeleteObjectAttribute(ctx context.Context, input *uriInput) (*deleteObjectAttributeOutput, error) {
	stats, err := s.engine.DeleteClassObjectAttribute(ctx, input.URI)
	if err != nil {
		return nil, apiError(err, "failed to delete object attribute")
	}
	return &deleteObjectAttributeOutput{Body: stats}, nil
}

func (s *Server) handleCreateObject(ctx context.Context, input *createObjectInput) (*nodeOutput, error) {
	created, err := s.engine.CreateObject(ctx, ontology.ObjectInput{
		ClassURI:   input.Body.ClassURI,
		Properties: input.Body.Properties,
		Relations:  input.Body.Relations,
	})
	if err != nil {
		return nil, apiError(err, "failed to create object")
	}
	if created == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("class %q not found", input.Body.ClassURI))
	}
	return &nodeOutput{Body: nodeView(*created)}, nil
}

func (s *Server) handleGetObject(ctx context.Context, input *uriInput) (*nodeOutput, error) {
	uri := input.URI
	obj, err := s.engine.GetObject(ctx, uri)
	if err != nil {
		return nil, apiError(err, "failed to read object")
	}
	if obj == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("object %q not found", uri))
	}
	return &nodeOutput{Body: nodeView(*obj)}, nil
}

func (s *Server) handleUpdateObject(ctx context.Context, input *updateObjectInput) (*nodeOutput, error) {
	updated, err := s.engine.UpdateObject(ctx, input.URI, input.Body.Properties)
	if err != nil {
		return nil, apiError(err, "failed to update object")
	}
	return &nodeOutput{Body: nodeView(*updated)}, nil
}

func (s *Server) handleDeleteObject(ctx context.Context, input *uriInput) (*deletedOutput, error) {
	uri := input.URI
	deleted, err := s.engine.DeleteObject(ctx, uri)
	if err != nil {
		return nil, apiError(err, "failed to delete object")
	}
	if !deleted {
		return nil, huma.Error404NotFound(fmt.Sprintf("object %q not found", uri))
	}
	out := &deletedOutput{}
	out.Body.Deleted = true
	return out, nil
}

func (s *Server) handleLinkObject(ctx context.Context, input *linkObjectInput) (*linkedOutput, error) {
	linked, err := s.engine.LinkObject(ctx, input.URI, input.Body)
	if err != nil {
		return nil, apiError(err, "failed to link object")
	}
	out := &linkedOutput{}
	out.Body.Linked = linked
	return out, nil
}
