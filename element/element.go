// Package element implements the in-memory configuration_element tree:
// the materialized form of an XML fragment carried by an extension,
// queried by the modules and services that consume it.
package element

import (
	"sort"

	"github.com/coremodule/runtime/rterrors"
)

// Element is a single node of a configuration tree. The zero value is not
// usable; construct with New.
type Element struct {
	name         string
	value        string
	attributes   map[string]string
	children     []*Element
	owningModule string
}

// New creates a named, empty element. name must be non-empty; it is
// immutable after construction.
func New(name string) *Element {
	return &Element{name: name, attributes: make(map[string]string)}
}

func (e *Element) Name() string  { return e.name }
func (e *Element) Value() string { return e.value }

// SetValue replaces the node's text content. Used only by the descriptor
// reader and programmatic tree construction.
func (e *Element) SetValue(v string) { e.value = v }

// AppendValue concatenates text/CDATA content in document order, the
// materialization rule for text and CDATA children (spec §4.4).
func (e *Element) AppendValue(v string) { e.value += v }

// Attribute returns the named attribute's value, or "" if absent.
func (e *Element) Attribute(name string) string {
	return e.attributes[name]
}

// MustAttribute returns the named attribute's value, or a NoSuchAttribute
// error if it is not present — the "get_existing_attribute_value" getter.
func (e *Element) MustAttribute(name string) (string, error) {
	v, ok := e.attributes[name]
	if !ok {
		return "", rterrors.New(rterrors.NoSuchAttribute, name, "attribute not present on element "+e.name)
	}
	return v, nil
}

// HasAttribute reports whether the named attribute is present.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.attributes[name]
	return ok
}

// SetAttribute sets (or overwrites) an attribute value. Keys are unique
// per node by construction: a repeated key simply overwrites.
func (e *Element) SetAttribute(name, value string) {
	if e.attributes == nil {
		e.attributes = make(map[string]string)
	}
	e.attributes[name] = value
}

// Attributes returns a defensive copy of the full attribute map.
func (e *Element) Attributes() map[string]string {
	out := make(map[string]string, len(e.attributes))
	for k, v := range e.attributes {
		out[k] = v
	}
	return out
}

// AttributeNames returns the attribute keys in sorted order, useful for
// deterministic serialization and tests.
func (e *Element) AttributeNames() []string {
	names := make([]string, 0, len(e.attributes))
	for k := range e.attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Children returns the ordered child list. The slice is the node's own
// backing storage; callers must not mutate it.
func (e *Element) Children() []*Element { return e.children }

// AddChild appends c to the child list in document order. c becomes
// solely owned by e.
func (e *Element) AddChild(c *Element) {
	e.children = append(e.children, c)
}

// OwningModule returns the identifier of the module that declared this
// element, or "" for a programmatically constructed tree. This is a weak
// back-reference: a plain identifier resolved through the runtime's
// module registry on demand, never a pointer, so it cannot form a cycle.
func (e *Element) OwningModule() string { return e.owningModule }

// SetOwningModule records the declaring module's identifier.
func (e *Element) SetOwningModule(moduleID string) { e.owningModule = moduleID }

// Find performs the recursive descendant search described in spec §4.3.
// An empty name/attribute/attributeValue acts as a wildcard for that
// criterion. depth < 0 means unlimited; depth == 0 tests only e itself.
func (e *Element) Find(name, attribute, attributeValue string, depth int) []*Element {
	var out []*Element
	e.find(name, attribute, attributeValue, depth, &out)
	return out
}

func (e *Element) find(name, attribute, attributeValue string, depth int, out *[]*Element) {
	if matches(e, name, attribute, attributeValue) {
		*out = append(*out, e)
	}
	if depth == 0 {
		return
	}
	nextDepth := depth - 1
	if depth < 0 {
		nextDepth = depth
	}
	for _, c := range e.children {
		c.find(name, attribute, attributeValue, nextDepth, out)
	}
}

func matches(e *Element, name, attribute, attributeValue string) bool {
	if name != "" && e.name != name {
		return false
	}
	if attribute != "" {
		v, ok := e.attributes[attribute]
		if !ok {
			return false
		}
		if attributeValue != "" && v != attributeValue {
			return false
		}
	}
	return true
}

// Clone deep-copies the subtree rooted at e; no storage is shared with
// the original (spec §3 invariant).
func (e *Element) Clone() *Element {
	clone := &Element{
		name:         e.name,
		value:        e.value,
		attributes:   e.Attributes(),
		owningModule: e.owningModule,
	}
	for _, c := range e.children {
		clone.AddChild(c.Clone())
	}
	return clone
}
