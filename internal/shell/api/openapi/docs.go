// Package openapi serves the OpenAPI 3.0 description of the profiles API
// and a small interactive docs page.
package openapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Docs
// =============================================================================

// Docs builds and serves the API specification.
type Docs struct {
	once sync.Once
	spec *openapi3.T
}

// NewDocs creates the docs provider.
func NewDocs() *Docs {
	return &Docs{}
}

// Spec returns the OpenAPI document, building it on first use.
func (d *Docs) Spec() *openapi3.T {
	d.once.Do(func() {
		d.spec = buildSpec()
	})
	return d.spec
}

// SpecHandler serves the OpenAPI document as JSON.
func (d *Docs) SpecHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err := json.NewEncoder(w).Encode(d.Spec()); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// PageHandler serves a swagger-ui page pointed at the spec endpoint.
func (d *Docs) PageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(docsPage))
	}
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
  <title>Profiles API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: "/openapi.json", dom_id: "#swagger-ui"});
  </script>
</body>
</html>
`

// =============================================================================
// Spec Assembly
// =============================================================================

func buildSpec() *openapi3.T {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Gnosis Profiles API",
			Version:     "1.0",
			Description: "API for managing user and AI profiles",
		},
		Servers: openapi3.Servers{
			&openapi3.Server{URL: "/"},
		},
		Paths: &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
			SecuritySchemes: openapi3.SecuritySchemes{
				"ApiKeyAuth": &openapi3.SecuritySchemeRef{
					Value: &openapi3.SecurityScheme{
						Type: "apiKey",
						In:   "header",
						Name: "X-API-KEY",
					},
				},
			},
		},
		Security: openapi3.SecurityRequirements{
			{"ApiKeyAuth": []string{}},
		},
	}

	spec.Components.Schemas["User"] = objectSchema(map[string]*openapi3.SchemaRef{
		"user_id":         intSchema(),
		"display_name":    stringSchema(),
		"name":            stringSchema(),
		"bio":             stringSchema(),
		"location":        stringSchema(),
		"profile_pic_url": stringSchema(),
		"created_at":      dateTimeSchema(),
	})

	spec.Components.Schemas["AIProfile"] = objectSchema(map[string]*openapi3.SchemaRef{
		"ai_id":                intSchema(),
		"content_id":           intSchema(),
		"display_name":         stringSchema(),
		"name":                 stringSchema(),
		"bio":                  stringSchema(),
		"location":             stringSchema(),
		"profile_pic_url":      stringSchema(),
		"systems_instructions": stringSchema(),
		"created_at":           dateTimeSchema(),
	})

	spec.Components.Schemas["Error"] = objectSchema(map[string]*openapi3.SchemaRef{
		"error": stringSchema(),
		"code":  stringSchema(),
	})

	spec.Paths.Set("/api/users", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "upsertUser",
			Summary:     "Create or update a user profile",
			Tags:        []string{"Users"},
			RequestBody: jsonBody("#/components/schemas/User"),
			Responses:   emptyResponses(),
		},
	})

	spec.Paths.Set("/api/users/{user_id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{intPathParam("user_id")},
		Get: &openapi3.Operation{
			OperationID: "getUser",
			Summary:     "Get a user profile by user_id",
			Tags:        []string{"Users"},
			Responses:   emptyResponses(),
		},
	})

	spec.Paths.Set("/api/ais", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "upsertAIProfile",
			Summary:     "Create or update an AI profile for a content item",
			Tags:        []string{"AIs"},
			RequestBody: jsonBody("#/components/schemas/AIProfile"),
			Responses:   emptyResponses(),
		},
	})

	spec.Paths.Set("/api/ais/content/{content_id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{intPathParam("content_id")},
		Get: &openapi3.Operation{
			OperationID: "getAIProfileByContent",
			Summary:     "Get an AI profile by content_id",
			Tags:        []string{"AIs"},
			Responses:   emptyResponses(),
		},
	})

	return spec
}

// =============================================================================
// Schema Helpers
// =============================================================================

func stringSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
}

func intSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}
}

func dateTimeSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
	}
}

func objectSchema(props map[string]*openapi3.SchemaRef) *openapi3.SchemaRef {
	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas, len(props)),
	}
	for name, ref := range props {
		schema.Properties[name] = ref
	}
	return &openapi3.SchemaRef{Value: schema}
}

func jsonBody(schemaRef string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content: openapi3.Content{
				"application/json": &openapi3.MediaType{
					Schema: &openapi3.SchemaRef{Ref: schemaRef},
				},
			},
		},
	}
}

func intPathParam(name string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   intSchema(),
		},
	}
}

func emptyResponses() *openapi3.Responses {
	return &openapi3.Responses{}
}
