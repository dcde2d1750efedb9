package manifest

import (
	_ "embed"

	"launcher/pkg/schema"
)

//go:embed schema.json
var SchemaJSON string

var validator = schema.New("manifest.schema.json", SchemaJSON)

func validate(b []byte) error {
	return validator.Validate(b)
}
