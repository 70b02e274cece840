package analysis

// SchemaType is the JSON type of a schema node.
type SchemaType string

const (
	TypeObject SchemaType = "object"
	TypeArray  SchemaType = "array"
	TypeString SchemaType = "string"
	TypeNumber SchemaType = "number"
)

// Schema is a provider-neutral description of the structured output a
// backend must produce. Backends convert it to their SDK's schema type.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	// Order lists property names in the order they should be presented to
	// the model. Properties missing from Order are not emitted.
	Order    []string
	Items    *Schema
	Required []string
}

// JSONSchema renders s as a JSON Schema document for backends that take one
// (tool input schemas, Ollama's format field).
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for _, name := range s.Order {
			if p, ok := s.Properties[name]; ok {
				props[name] = p.JSONSchema()
			}
		}
		out["properties"] = props
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Required) > 0 {
		out["required"] = append([]string(nil), s.Required...)
	}
	return out
}

func str(desc string) *Schema { return &Schema{Type: TypeString, Description: desc} }

func nutrientSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"name":   str(""),
			"amount": str(""),
			"unit":   str(""),
		},
		Order:    []string{"name", "amount", "unit"},
		Required: []string{"name", "amount", "unit"},
	}
}

// requiredFields are the top-level fields a response must carry. micros is
// requested but optional.
var requiredFields = []string{
	"recognizedFood",
	"summary",
	"calories",
	"macros",
	"bodyImpacts",
	"smartConsumption",
	"importantAwareness",
}

// FoodAnalysisSchema returns the output schema sent with every request. A
// fresh value is returned so backends may not mutate a shared one.
func FoodAnalysisSchema() *Schema {
	macros := &Schema{
		Type:        TypeArray,
		Description: "List of macronutrients (Protein, Fat, Carbohydrates).",
		Items:       nutrientSchema(),
	}
	micros := &Schema{
		Type:        TypeArray,
		Description: "List of key micronutrients (e.g., vitamins, minerals).",
		Items:       nutrientSchema(),
	}
	impacts := &Schema{
		Type:        TypeArray,
		Description: "How the food impacts different body systems (Heart, Muscles, Brain, Energy, etc.).",
		Items: &Schema{
			Type: TypeObject,
			Properties: map[string]*Schema{
				"system":      str("The body system affected, e.g., 'Heart', 'Muscles'."),
				"description": str("Explanation of the impact on that system."),
			},
			Order:    []string{"system", "description"},
			Required: []string{"system", "description"},
		},
	}

	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"recognizedFood":     str("The name of the food item identified in the image."),
			"summary":            str("A brief, one-sentence summary of the food's nutritional profile."),
			"calories":           {Type: TypeNumber, Description: "Estimated calories for a typical serving size."},
			"macros":             macros,
			"micros":             micros,
			"bodyImpacts":        impacts,
			"smartConsumption":   str("A practical tip for how to best consume this food, e.g., 'Pair with apple slices for fiber'."),
			"importantAwareness": str("A key warning or point of awareness, e.g., 'High calorie density; stick to a 2-tablespoon serving'."),
		},
		Order: []string{
			"recognizedFood", "summary", "calories", "macros", "micros",
			"bodyImpacts", "smartConsumption", "importantAwareness",
		},
		Required: append([]string(nil), requiredFields...),
	}
}
