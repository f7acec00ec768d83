// Package validator wraps the schema(s) an extension point may declare
// and validates extension contributions against them, accumulating a
// diagnostic error log the way the donor's validation passes do.
package validator

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/coremodule/runtime/element"
)

// Validator validates configuration_element subtrees against an XML-side
// structural schema and, optionally (SPEC_FULL §2.2 supplement), a JSON
// Schema applied to a <config> child's JSON text content.
type Validator struct {
	schemaPath     string
	jsonSchemaPath string

	xs *xmlSchema
	js *jsonschema.Schema

	mu       sync.Mutex
	errorLog []string
}

// New compiles the validator's schema(s). Either path may be empty; a
// Validator with both empty always reports valid (spec §3: "schema_path
// ... empty means any contribution is valid").
func New(schemaPath, jsonSchemaPath string) (*Validator, error) {
	v := &Validator{schemaPath: schemaPath, jsonSchemaPath: jsonSchemaPath}

	if schemaPath != "" {
		xs, err := loadXMLSchema(schemaPath)
		if err != nil {
			return nil, err
		}
		v.xs = xs
	}

	if jsonSchemaPath != "" {
		c := jsonschema.NewCompiler()
		sch, err := c.Compile(jsonSchemaPath)
		if err != nil {
			return nil, fmt.Errorf("compile json schema %s: %w", jsonSchemaPath, err)
		}
		v.js = sch
	}

	return v, nil
}

// NewFromBytes builds a Validator from an already-loaded XML schema
// document, for callers (descriptor, profilereader) that bundle their
// schema into the binary via go:embed rather than reading it from a
// filesystem path.
func NewFromBytes(xmlSchemaBytes []byte) (*Validator, error) {
	v := &Validator{}
	if len(xmlSchemaBytes) > 0 {
		xs, err := loadXMLSchemaBytes(xmlSchemaBytes)
		if err != nil {
			return nil, fmt.Errorf("parse bundled schema: %w", err)
		}
		v.xs = xs
	}
	return v, nil
}

// Validate checks node (and, for the xml-schema path, its descendants)
// against the compiled schema(s), recording diagnostics in the error log.
// It returns true iff no diagnostics were recorded.
func (v *Validator) Validate(node *element.Element) bool {
	v.mu.Lock()
	v.errorLog = nil
	v.mu.Unlock()

	ok := true
	if v.xs != nil {
		ok = v.validateXML(node) && ok
	}
	if v.js != nil {
		ok = v.validateJSON(node) && ok
	}
	return ok
}

func (v *Validator) validateXML(node *element.Element) bool {
	ok := true
	if v.xs.Root != "" && node.Name() != v.xs.Root {
		v.logf("root element %q does not match schema root %q", node.Name(), v.xs.Root)
		ok = false
	}
	ok = v.walkXML(node) && ok
	return ok
}

func (v *Validator) walkXML(node *element.Element) bool {
	ok := true
	if rule, found := v.xs.ruleFor(node.Name()); found {
		for _, a := range rule.Attributes {
			val, has := node.Attributes()[a.Name]
			if !has {
				if a.Required {
					v.logf("element %q missing required attribute %q", node.Name(), a.Name)
					ok = false
				}
				continue
			}
			if err := checkAttrType(val, a.Type); err != nil {
				v.logf("element %q attribute %q: %v", node.Name(), a.Name, err)
				ok = false
			}
		}
		for _, c := range rule.Children {
			if c.Required && len(node.Find(c.Name, "", "", 1)) == 0 {
				v.logf("element %q missing required child %q", node.Name(), c.Name)
				ok = false
			}
		}
	}
	for _, child := range node.Children() {
		ok = v.walkXML(child) && ok
	}
	return ok
}

func (v *Validator) validateJSON(node *element.Element) bool {
	configs := node.Find("config", "", "", -1)
	if len(configs) == 0 {
		v.logf("no <config> element found for json-schema validation")
		return false
	}
	payload := configs[0].Value()
	var doc interface{}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		v.logf("config payload is not valid json: %v", err)
		return false
	}
	if err := v.js.Validate(doc); err != nil {
		v.logf("json schema validation failed: %v", err)
		return false
	}
	return true
}

func (v *Validator) logf(format string, args ...interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errorLog = append(v.errorLog, fmt.Sprintf(format, args...))
}

// ErrorLog returns the diagnostics accumulated by the most recent
// Validate call.
func (v *Validator) ErrorLog() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.errorLog))
	copy(out, v.errorLog)
	return out
}

// ClearErrorLog resets the accumulator.
func (v *Validator) ClearErrorLog() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errorLog = nil
}
