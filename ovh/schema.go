package ovh

import (
	"context"
	"net/http"
	"strings"
)

// Schema is the description document served at <path>.json.
type Schema struct {
	APIVersion   string           `json:"apiVersion"`
	SwaggerVer   string           `json:"swaggerVersion"`
	BasePath     string           `json:"basePath"`
	ResourcePath string           `json:"resourcePath"`
	APIs         []API            `json:"apis"`
	Models       map[string]Model `json:"models"`
}

// API is one path of a schema.
type API struct {
	Path        string      `json:"path"`
	Description string      `json:"description"`
	Operations  []Operation `json:"operations"`
}

// Operation is one method on an API path.
type Operation struct {
	HTTPMethod       string      `json:"httpMethod"`
	Description      string      `json:"description"`
	ResponseType     string      `json:"responseType"`
	NoAuthentication bool        `json:"noAuthentication"`
	Parameters       []Parameter `json:"parameters"`
	APIStatus        *APIStatus  `json:"apiStatus,omitempty"`
}

// APIStatus tells whether an operation is production ready.
type APIStatus struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Parameter of an operation.
type Parameter struct {
	Name        string `json:"name"`
	DataType    string `json:"dataType"`
	ParamType   string `json:"paramType"`
	FullType    string `json:"fullType"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Model is a type declared by a schema.
type Model struct {
	ID          string              `json:"id"`
	Namespace   string              `json:"namespace"`
	Description string              `json:"description"`
	Enum        []string            `json:"enum,omitempty"`
	EnumType    string              `json:"enumType,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
}

// Property of a model.
type Property struct {
	Type        string `json:"type"`
	FullType    string `json:"fullType"`
	CanBeNull   bool   `json:"canBeNull"`
	ReadOnly    bool   `json:"readOnly"`
	Description string `json:"description"`
}

// GetSchema fetches the schema of schemaPath, for example "/me". The call
// is unauthenticated and its result is cached for the client lifetime.
func (c *Client) GetSchema(ctx context.Context, schemaPath string) (*Schema, error) {
	schemaPath = strings.TrimSuffix(schemaPath, ".json")

	c.schemaMu.Lock()
	cached, ok := c.schemas[schemaPath]
	c.schemaMu.Unlock()

	if ok {
		return cached, nil
	}

	var schema Schema
	if err := c.send(ctx, &call{method: http.MethodGet, path: schemaPath + ".json"}, &schema); err != nil {
		return nil, err
	}

	c.schemaMu.Lock()
	c.schemas[schemaPath] = &schema
	c.schemaMu.Unlock()

	return &schema, nil
}

// GetModels returns every model of the schema of schemaPath.
func (c *Client) GetModels(ctx context.Context, schemaPath string) (map[string]Model, error) {
	schema, err := c.GetSchema(ctx, schemaPath)
	if err != nil {
		return nil, err
	}

	return schema.Models, nil
}

// GetModel returns the model called name. The boolean is false when the
// schema has no such model.
func (c *Client) GetModel(ctx context.Context, schemaPath, name string) (*Model, bool, error) {
	models, err := c.GetModels(ctx, schemaPath)
	if err != nil {
		return nil, false, err
	}

	m, ok := models[name]
	if !ok {
		return nil, false, nil
	}

	return &m, true, nil
}
