package runtime

import (
	"fmt"
	"sync"

	"github.com/coremodule/runtime/descriptor"
	"github.com/coremodule/runtime/dl"
	"github.com/coremodule/runtime/rterrors"
	"github.com/coremodule/runtime/version"
)

// StopperSink receives a module identifier each time a module is about
// to start its plugin, so stop order can invert start order
// even across transitively-started requirements (spec §4.8 step 6,
// §4.10). A profile implements this to accumulate its stopper list.
type StopperSink interface {
	PushStopper(moduleID string)
}

// Module is one discovered and (optionally) started plugin unit (spec
// §3/§4.8).
type Module struct {
	identifier        string
	ver               version.Version
	priority          int
	resourcesLocation string
	libraryLocation   string
	pluginClass       string
	library           *dl.Library

	mu                sync.Mutex
	requirements      []string
	parameters        map[string]string
	factoryTypeNames  []string
	extensionIDs      []string
	extensionPointIDs []string

	plugin      Plugin
	enabled     bool
	started     bool
	initialized bool
	starting    bool // in-flight guard, requirement-cycle detection
}

func newModuleFromDescriptor(d *descriptor.Descriptor) *Module {
	m := &Module{
		identifier:        d.ID,
		ver:               d.Version,
		priority:          d.Priority,
		resourcesLocation: d.ResourcesLocation,
		libraryLocation:   d.LibraryLocation,
		pluginClass:       d.PluginClass,
		requirements:      append([]string(nil), d.Requirements...),
		parameters:        map[string]string{},
		enabled:           true,
	}
	for k, v := range d.Parameters {
		m.parameters[k] = v
	}
	if d.Library {
		lib := dl.New(d.LibraryBaseName)
		lib.SetSearchPath(d.LibraryLocation)
		m.library = lib
	}
	return m
}

func (m *Module) Identifier() string        { return m.identifier }
func (m *Module) Version() version.Version  { return m.ver }
func (m *Module) Priority() int             { return m.priority }
func (m *Module) ResourcesLocation() string { return m.resourcesLocation }
func (m *Module) LibraryLocation() string   { return m.libraryLocation }
func (m *Module) PluginClass() string       { return m.pluginClass }

func (m *Module) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

func (m *Module) SetEnabled(v bool) {
	m.mu.Lock()
	m.enabled = v
	m.mu.Unlock()
}

func (m *Module) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *Module) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// AddParameter sets a parameter value, overwriting any existing value
// for the same key.
func (m *Module) AddParameter(key, value string) {
	m.mu.Lock()
	m.parameters[key] = value
	m.mu.Unlock()
}

func (m *Module) HasParameter(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.parameters[key]
	return ok
}

func (m *Module) ParameterValue(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.parameters[key]
}

func (m *Module) HasExtension(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.extensionIDs {
		if e == id {
			return true
		}
	}
	return false
}

func (m *Module) HasExtensionPoint(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.extensionPointIDs {
		if p == id {
			return true
		}
	}
	return false
}

// SetEnableExtension toggles the enabled flag of one of this module's own
// extensions.
func (m *Module) SetEnableExtension(rt *Runtime, id string, enabled bool) error {
	if !m.HasExtension(id) {
		return rterrors.New(rterrors.InvalidExtension, id, "extension not owned by module "+m.identifier)
	}
	e, ok := rt.extensionByID(id)
	if !ok {
		return rterrors.New(rterrors.InvalidExtension, id, "extension not registered")
	}
	e.SetEnabled(enabled)
	return nil
}

// SetEnableExtensionPoint toggles the enabled flag of one of this
// module's own extension points.
func (m *Module) SetEnableExtensionPoint(rt *Runtime, id string, enabled bool) error {
	if !m.HasExtensionPoint(id) {
		return rterrors.New(rterrors.InvalidPointReference, id, "extension point not owned by module "+m.identifier)
	}
	p, ok := rt.extensionPointByID(id)
	if !ok {
		return rterrors.New(rterrors.InvalidPointReference, id, "extension point not registered")
	}
	p.SetEnabled(enabled)
	return nil
}

// FindExecutableFactory reports whether typeName names one of this
// module's own, currently-enabled factories.
func (m *Module) FindExecutableFactory(rt *Runtime, typeName string) bool {
	m.mu.Lock()
	found := false
	for _, t := range m.factoryTypeNames {
		if t == typeName {
			found = true
			break
		}
	}
	m.mu.Unlock()
	if !found {
		return false
	}
	_, ok := rt.FindExecutableFactory(typeName)
	return ok
}

// Start brings up the module: its requirements, native library, and
// plugin object, in that order, registering a stopper with sink just
// before the plugin's own Start is called so stop order naturally
// inverts (spec §4.8).
func (m *Module) Start(rt *Runtime, sink StopperSink) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	if !m.enabled {
		m.mu.Unlock()
		return rterrors.New(rterrors.PluginStartError, m.identifier, "module is not enabled")
	}
	if m.starting {
		m.mu.Unlock()
		return rterrors.New(rterrors.MissingRequirement, m.identifier, "requirement cycle detected")
	}
	m.starting = true
	requirements := append([]string(nil), m.requirements...)
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.starting = false
		m.mu.Unlock()
	}()

	for _, reqID := range requirements {
		req, ok := rt.FindModule(reqID)
		if !ok {
			return rterrors.New(rterrors.MissingRequirement, m.identifier, fmt.Sprintf("required module %q not found", reqID))
		}
		if !req.Enabled() {
			req.SetEnabled(true)
		}
		if err := req.Start(rt, sink); err != nil {
			return rterrors.Wrap(rterrors.MissingRequirement, m.identifier, err)
		}
	}

	if m.library != nil && !m.library.IsLoaded() {
		if err := m.library.Load(); err != nil {
			return rterrors.Wrap(rterrors.LibraryLoadError, m.identifier, err)
		}
	}

	var plugin Plugin
	if m.pluginClass == "" {
		plugin = &BasePlugin{}
	} else {
		exec, err := rt.CreateExecutableInstance(m.pluginClass)
		if err != nil {
			return rterrors.Wrap(rterrors.PluginStartError, m.identifier, err)
		}
		p, ok := exec.(Plugin)
		if !ok {
			return rterrors.New(rterrors.PluginStartError, m.identifier, fmt.Sprintf("factory %q does not produce a Plugin", m.pluginClass))
		}
		plugin = p
	}
	plugin.SetOwningModule(m.identifier)

	if sink != nil {
		sink.PushStopper(m.identifier)
	}

	if err := plugin.Start(); err != nil {
		return rterrors.Wrap(rterrors.PluginStartError, m.identifier, err)
	}

	m.mu.Lock()
	m.plugin = plugin
	m.started = true
	m.mu.Unlock()
	return nil
}

// Stop tears the module down: stops its plugin, then unregisters the
// module's own factories/extensions/points from rt (the module itself
// remains registered, spec §4.8 step 4).
func (m *Module) Stop(rt *Runtime) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	if m.initialized {
		m.mu.Unlock()
		return rterrors.New(rterrors.PluginStopError, m.identifier, "module must be uninitialized before stop")
	}
	plugin := m.plugin
	m.mu.Unlock()

	if err := plugin.Stop(); err != nil {
		return rterrors.Wrap(rterrors.PluginStopError, m.identifier, err)
	}

	m.mu.Lock()
	m.started = false
	m.plugin = nil
	m.mu.Unlock()

	rt.unregisterModuleContributions(m)
	return nil
}

// Initialize forwards to the plugin's Initialize hook. Double-initialize
// is fatal (spec §4.8).
func (m *Module) Initialize() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return rterrors.New(rterrors.PluginStartError, m.identifier, "module must be started before initialize")
	}
	if m.initialized {
		m.mu.Unlock()
		return rterrors.New(rterrors.PluginStartError, m.identifier, "module already initialized")
	}
	plugin := m.plugin
	m.mu.Unlock()

	if err := plugin.Initialize(); err != nil {
		return rterrors.Wrap(rterrors.PluginStartError, m.identifier, err)
	}

	m.mu.Lock()
	m.initialized = true
	m.mu.Unlock()
	return nil
}

// Uninitialize forwards to the plugin's Uninitialize hook.
func (m *Module) Uninitialize() error {
	m.mu.Lock()
	if !m.started || !m.initialized {
		m.mu.Unlock()
		return rterrors.New(rterrors.PluginStopError, m.identifier, "module not initialized")
	}
	plugin := m.plugin
	m.mu.Unlock()

	if err := plugin.Uninitialize(); err != nil {
		return rterrors.Wrap(rterrors.PluginStopError, m.identifier, err)
	}

	m.mu.Lock()
	m.initialized = false
	m.mu.Unlock()
	return nil
}
