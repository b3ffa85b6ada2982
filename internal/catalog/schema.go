package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const catalogSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["properties"],
  "properties": {
    "properties": {
      "type": "array",
      "items": {"$ref": "#/$defs/property"}
    }
  },
  "$defs": {
    "count": {"type": ["integer", "null"], "minimum": 0},
    "strings": {"type": ["array", "null"], "items": {"type": "string"}},
    "money": {"type": ["number", "null"], "minimum": 0},
    "property": {
      "type": "object",
      "required": ["id", "price", "address"],
      "properties": {
        "id": {"type": ["string", "integer"], "minLength": 1},
        "type": {"type": ["string", "null"], "enum": ["Condo", "Single Family Home", null]},
        "price": {"type": "number", "minimum": 0.5},
        "address": {"type": "string", "minLength": 1},
        "city": {"type": ["string", "null"]},
        "state": {"type": ["string", "null"]},
        "zip": {"type": ["string", "null"]},
        "description": {"type": ["string", "null"]},
        "bedrooms": {"$ref": "#/$defs/count"},
        "beds": {"$ref": "#/$defs/count"},
        "bathrooms": {"$ref": "#/$defs/count"},
        "baths": {"$ref": "#/$defs/count"},
        "square_footage": {"type": ["integer", "null"], "exclusiveMinimum": 0},
        "sqft": {"type": ["integer", "null"], "exclusiveMinimum": 0},
        "lot_size": {"$ref": "#/$defs/count"},
        "house_age": {"$ref": "#/$defs/count"},
        "hazard_zones": {"$ref": "#/$defs/strings"},
        "amenities": {"$ref": "#/$defs/strings"},
        "features": {"$ref": "#/$defs/strings"},
        "view": {"type": ["string", "null"]},
        "image": {"type": ["string", "null"]},
        "open_house_info": {
          "type": ["object", "null"],
          "properties": {
            "date": {"type": "string"},
            "time": {"type": "string"}
          }
        },
        "financial": {
          "type": ["object", "null"],
          "properties": {
            "monthly_ground_rent": {"$ref": "#/$defs/money"},
            "lease_type": {"type": ["string", "null"]},
            "monthly_hoa_fees": {"$ref": "#/$defs/money"}
          }
        },
        "latitude": {"type": ["number", "null"], "minimum": -90, "maximum": 90},
        "longitude": {"type": ["number", "null"], "minimum": -180, "maximum": 180}
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("catalog.json", catalogSchema)

// validateDocument checks the raw catalog document before it is decoded
func validateDocument(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("catalog is not valid JSON: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("catalog failed schema validation: %w", err)
	}
	return nil
}
