package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"
)

// SchemaGroup is a named set of API types published as one JSON Schema document
type SchemaGroup struct {
	Name  string
	Types []any
}

// SchemaGroups lists the API types by area.
func SchemaGroups() []SchemaGroup {
	return []SchemaGroup{
		{
			Name: "search",
			Types: []any{
				// Request types
				SearchRequest{},
				ScoreRequest{},
				// Response types
				StoreResponse{},
				SearchResponse{},
				SplitPlanResponse{},
				ScoreResponse{},
			},
		},
		{
			Name: "orders",
			Types: []any{
				PlaceOrderRequest{},
				PlaceOrderResponse{},
				OrderResponse{},
			},
		},
	}
}

// GroupSchema builds a combined schema with the definitions of every type in a group.
func GroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{}
	definitions := make(map[string]any)

	for _, t := range group.Types {
		schema := reflector.Reflect(t)
		for name, def := range schema.Definitions {
			definitions[name] = def
		}

		// Ref looks like "#/$defs/SearchRequest"
		if typeName := filepath.Base(schema.Ref); schema.Definitions[typeName] != nil {
			definitions[typeName] = schema.Definitions[typeName]
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://meditatva.in/schemas/%s.json", group.Name),
		"title":       fmt.Sprintf("%s API Types", strings.ToUpper(group.Name[:1])+group.Name[1:]),
		"description": fmt.Sprintf("JSON Schema for %s API types generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

var (
	schemasOnce sync.Once
	schemaDocs  map[string]any
)

// Schemas serves every schema group keyed by name
// GET /openapi/schemas.json
func Schemas(c *gin.Context) {
	schemasOnce.Do(func() {
		schemaDocs = make(map[string]any)
		for _, g := range SchemaGroups() {
			schemaDocs[g.Name] = GroupSchema(g)
		}
	})
	c.JSON(http.StatusOK, schemaDocs)
}
