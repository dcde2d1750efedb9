// Package schema validates JSON documents against embedded JSON Schemas.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"launcher/pkg/common"
)

// Validator checks documents against one schema, compiled on first use.
type Validator struct {
	name    string
	compile func() (*jsonschema.Schema, error)
}

// New returns a validator for the schema source src. name is used in
// error messages and as the resource URL.
func New(name, src string) *Validator {
	return &Validator{
		name: name,
		compile: sync.OnceValues(func() (*jsonschema.Schema, error) {
			c := jsonschema.NewCompiler()
			if err := c.AddResource(name, strings.NewReader(src)); err != nil {
				return nil, err
			}
			return c.Compile(name)
		}),
	}
}

// Validate decodes b as generic JSON and validates it. Any failure wraps
// common.ErrMalformed.
func (v *Validator) Validate(b []byte) error {
	s, err := v.compile()
	if err != nil {
		// The schemas are embedded, so this is a build defect.
		panic(fmt.Sprintf("schema %s: %v", v.name, err))
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&doc); err != nil {
		return common.Malformedf("%s: %v", v.name, err)
	}
	if dec.More() {
		return common.Malformedf("%s: trailing data after document", v.name)
	}
	if err := s.Validate(doc); err != nil {
		return common.Malformedf("%s: %v", v.name, err)
	}
	return nil
}
