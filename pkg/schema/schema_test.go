package schema

import (
	"errors"
	"testing"

	"launcher/pkg/common"
)

const testSchema = `{
  "type": "object",
  "required": ["n"],
  "properties": {"n": {"type": "integer", "minimum": 1}}
}`

func TestValidate(t *testing.T) {
	v := New("test.schema.json", testSchema)
	if err := v.Validate([]byte(`{"n": 3}`)); err != nil {
		t.Errorf("Expected valid document, got %v", err)
	}
	for _, doc := range []string{`{"n": 0}`, `{}`, `[`, `{"n": 1} {"n": 2}`} {
		if err := v.Validate([]byte(doc)); !errors.Is(err, common.ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", doc, err)
		}
	}
}

func TestBadSchemaPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Expected panic for invalid schema")
		}
	}()
	_ = New("bad.json", `{"type": 12}`).Validate([]byte(`{}`))
}
