package runtime

import (
	"fmt"
	"sync"

	"github.com/coremodule/runtime/element"
	"github.com/coremodule/runtime/rterrors"
)

type validity int

const (
	validityUnknown validity = iota
	validityValid
	validityInvalid
)

// Extension is one module's contribution to an extension point (spec §3).
type Extension struct {
	id   string
	// key is the registry key: id when the descriptor supplied one, or a
	// synthetic UUID for an anonymous extension. It is never returned by
	// ID(), so an anonymous extension's observable id stays empty, as
	// spec.md's data model requires.
	key          string
	pointID      string
	owningModule string
	payload      *element.Element
	configRoot   *element.Element

	mu            sync.Mutex
	enabled       bool
	validity      validity
	validationErr error
}

func (e *Extension) ID() string                          { return e.id }
func (e *Extension) PointID() string                     { return e.pointID }
func (e *Extension) OwningModule() string                { return e.owningModule }
func (e *Extension) ConfigurationRoot() *element.Element { return e.configRoot }

func (e *Extension) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

func (e *Extension) SetEnabled(v bool) {
	e.mu.Lock()
	e.enabled = v
	e.mu.Unlock()
}

// Validate memoizes its verdict: the first call resolves the target
// point and, if the point declares a schema, runs the cached Validator
// against the extension's stored node (spec §4.6). Subsequent calls
// return the cached result without re-validating.
func (e *Extension) Validate(rt *Runtime) error {
	e.mu.Lock()
	if e.validity != validityUnknown {
		err := e.validationErr
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	err := e.validateUncached(rt)

	e.mu.Lock()
	if err != nil {
		e.validity = validityInvalid
		e.validationErr = err
	} else {
		e.validity = validityValid
		e.validationErr = nil
	}
	e.mu.Unlock()
	return err
}

func (e *Extension) validateUncached(rt *Runtime) error {
	point, ok := rt.extensionPointByID(e.pointID)
	if !ok {
		return rterrors.New(rterrors.InvalidPointReference, e.key,
			fmt.Sprintf("extension point %q not found (owning module %s)", e.pointID, e.owningModule))
	}
	if point.schemaPath == "" && point.jsonSchemaPath == "" {
		return nil
	}

	v, err := rt.validatorCache.Get(point.resourcesLocation, point.schemaPath, point.jsonSchemaPath)
	if err != nil {
		return rterrors.Wrap(rterrors.InvalidExtension, e.key, err)
	}
	if !v.Validate(e.payload) {
		return rterrors.New(rterrors.InvalidExtension, e.key,
			fmt.Sprintf("extension %q (module %s) failed validation against point %q: %v", e.id, e.owningModule, point.id, v.ErrorLog()))
	}
	return nil
}

// ExtensionPoint is a named slot other modules' extensions may target
// (spec §3). Its validator is resolved lazily, through the runtime's
// shared validator.Cache, on the first extension validated against it.
type ExtensionPoint struct {
	id                string
	owningModule      string
	resourcesLocation string
	schemaPath        string
	jsonSchemaPath    string

	mu      sync.Mutex
	enabled bool
}

func (p *ExtensionPoint) ID() string           { return p.id }
func (p *ExtensionPoint) OwningModule() string { return p.owningModule }
func (p *ExtensionPoint) SchemaPath() string    { return p.schemaPath }

func (p *ExtensionPoint) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *ExtensionPoint) SetEnabled(v bool) {
	p.mu.Lock()
	p.enabled = v
	p.mu.Unlock()
}
