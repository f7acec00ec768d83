// Package runtime is the process-wide registry of modules, executable
// factories, extensions, and extension points, and the module lifecycle
// that drives them (spec §4.8, §4.9). It deliberately keeps module,
// extension, extension-point, and factory types in one package: in the
// source this component mirrors, they form a single tightly-coupled
// object graph, and modeling that with separate Go packages would force
// an import cycle or interface plumbing with no behavioral benefit.
package runtime

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/coremodule/runtime/descriptor"
	"github.com/coremodule/runtime/element"
	"github.com/coremodule/runtime/rterrors"
	"github.com/coremodule/runtime/validator"

	"log/slog"
)

// Runtime maintains the module, factory, extension, and extension-point
// registries (spec §4.9). The zero value is not usable; construct with
// New.
type Runtime struct {
	logger *slog.Logger

	mu              sync.RWMutex
	modules         map[string]*Module
	factories       map[string]*registeredFactory
	extensions      map[string]*Extension
	extensionPoints map[string]*ExtensionPoint
	addedDirs       map[string]bool

	validatorCache *validator.Cache
}

// New creates an empty runtime. A nil logger defaults to slog.Default().
func New(logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		logger:          logger,
		modules:         make(map[string]*Module),
		factories:       make(map[string]*registeredFactory),
		extensions:      make(map[string]*Extension),
		extensionPoints: make(map[string]*ExtensionPoint),
		addedDirs:       make(map[string]bool),
		validatorCache:  validator.NewCache(),
	}
}

var (
	defaultMu      sync.Mutex
	defaultRuntime *Runtime
)

// Default returns the process-wide runtime, constructing it on first use.
// Most hosts are better served by an explicit *Runtime threaded through
// their own call graph; Default exists for the rare single-runtime
// process that prefers implicit access (e.g. a plugin's own Start()
// registering factories against whichever runtime loaded it).
func Default() *Runtime {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRuntime == nil {
		defaultRuntime = New(nil)
	}
	return defaultRuntime
}

// SetDefault overrides the process-wide runtime, primarily for tests.
func SetDefault(rt *Runtime) {
	defaultMu.Lock()
	defaultRuntime = rt
	defaultMu.Unlock()
}

// AddModules scans dir's first-level subdirectories for plugin.xml
// descriptors and registers every module found, cross-registering its
// extensions and extension points (spec §4.9). Re-adding a
// previously-added directory is a silent no-op.
func (rt *Runtime) AddModules(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return rterrors.Wrap(rterrors.NotADirectory, dir, err)
	}

	rt.mu.Lock()
	if rt.addedDirs[abs] {
		rt.mu.Unlock()
		return nil
	}
	rt.addedDirs[abs] = true
	rt.mu.Unlock()

	descs, err := descriptor.CreateModules(abs, descriptor.Options{
		Logger: rt.logger,
		AlreadyRegistered: func(id string) bool {
			_, ok := rt.FindModule(id)
			return ok
		},
	})
	if err != nil {
		return err
	}

	for _, d := range descs {
		if err := rt.registerModule(d); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) registerModule(d *descriptor.Descriptor) error {
	m := newModuleFromDescriptor(d)

	var points []*ExtensionPoint
	for _, epd := range d.ExtensionPoints {
		points = append(points, &ExtensionPoint{
			id:                epd.ID,
			owningModule:      d.ID,
			resourcesLocation: d.ResourcesLocation,
			schemaPath:        epd.SchemaPath,
			jsonSchemaPath:    epd.JSONSchemaPath,
			enabled:           true,
		})
	}

	var exts []*Extension
	for _, exd := range d.Extensions {
		key := exd.ID
		if key == "" {
			key = uuid.NewString()
		}
		exts = append(exts, &Extension{
			id:           exd.ID,
			key:          key,
			pointID:      exd.Implements,
			owningModule: d.ID,
			payload:      exd.Config,
			configRoot:   exd.Config,
			enabled:      true,
		})
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, exists := rt.modules[d.ID]; exists {
		return nil
	}
	for _, p := range points {
		if _, exists := rt.extensionPoints[p.id]; exists {
			return rterrors.New(rterrors.DuplicateIdentifier, p.id, "extension point id already registered")
		}
	}
	for _, e := range exts {
		if _, exists := rt.extensions[e.key]; exists {
			return rterrors.New(rterrors.DuplicateIdentifier, e.key, "extension id already registered")
		}
	}

	rt.modules[d.ID] = m
	for _, p := range points {
		rt.extensionPoints[p.id] = p
		m.extensionPointIDs = append(m.extensionPointIDs, p.id)
	}
	for _, e := range exts {
		rt.extensions[e.key] = e
		m.extensionIDs = append(m.extensionIDs, e.key)
	}
	return nil
}

// FindModule returns the module registered under id, if any.
func (rt *Runtime) FindModule(id string) (*Module, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	m, ok := rt.modules[id]
	return m, ok
}

// FindEnabledModule is FindModule filtered to enabled modules.
func (rt *Runtime) FindEnabledModule(id string) (*Module, bool) {
	m, ok := rt.FindModule(id)
	if !ok || !m.Enabled() {
		return nil, false
	}
	return m, true
}

// FindExtension returns the first enabled extension registered under id.
func (rt *Runtime) FindExtension(id string) (*Extension, bool) {
	e, ok := rt.extensionByID(id)
	if !ok || !e.Enabled() {
		return nil, false
	}
	return e, true
}

// FindExtensionPoint returns the first enabled extension point registered
// under id.
func (rt *Runtime) FindExtensionPoint(id string) (*ExtensionPoint, bool) {
	p, ok := rt.extensionPointByID(id)
	if !ok || !p.Enabled() {
		return nil, false
	}
	return p, true
}

func (rt *Runtime) extensionByID(id string) (*Extension, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	e, ok := rt.extensions[id]
	return e, ok
}

func (rt *Runtime) extensionPointByID(id string) (*ExtensionPoint, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	p, ok := rt.extensionPoints[id]
	return p, ok
}

// FindExecutableFactory reports the owning module of the first enabled
// factory registered under typeName.
func (rt *Runtime) FindExecutableFactory(typeName string) (string, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	f, ok := rt.factories[typeName]
	if !ok || !f.enabled {
		return "", false
	}
	return f.owningModule, true
}

// RegisterFactory registers an executable factory under typeName, owned
// by owningModuleID. This is the Go-native stand-in for what a module's
// native library would register at load time in the original system: Go
// plugin.Open cannot hand back a typed callable through the
// platform-neutral dl abstraction (dl.GetSymbol only returns a raw
// address, needed for Windows parity), so a module's Plugin registers its
// own factories explicitly from Start() instead.
func (rt *Runtime) RegisterFactory(typeName, owningModuleID string, factory Factory) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if f, exists := rt.factories[typeName]; exists && f.enabled {
		return rterrors.New(rterrors.DuplicateIdentifier, typeName, "executable factory already registered")
	}
	rt.factories[typeName] = &registeredFactory{typeName: typeName, owningModule: owningModuleID, factory: factory, enabled: true}
	if m, ok := rt.modules[owningModuleID]; ok {
		m.mu.Lock()
		m.factoryTypeNames = append(m.factoryTypeNames, typeName)
		m.mu.Unlock()
	}
	return nil
}

// CreateExecutableInstance locates the factory registered under
// typeName and instantiates it (spec §4.9, one-argument form).
func (rt *Runtime) CreateExecutableInstance(typeName string) (Executable, error) {
	rt.mu.RLock()
	f, ok := rt.factories[typeName]
	rt.mu.RUnlock()
	if !ok || !f.enabled {
		return nil, rterrors.New(rterrors.ExecutableFactoryMissing, typeName, "no enabled factory registered for type")
	}
	return instantiate(f, nil)
}

// CreateExecutableInstanceWithConfig is the two-argument form: if the
// factory is not yet registered, it starts cfg's owning module first
// (which, for a well-formed module, registers the factory) and retries
// once before giving up. After construction it also starts the factory's
// own owning module, guaranteeing the provider is running before the
// caller uses the executable (spec §4.9).
func (rt *Runtime) CreateExecutableInstanceWithConfig(typeName string, cfg *element.Element, sink StopperSink) (Executable, error) {
	f, ok := rt.lookupFactory(typeName)
	if !ok {
		if cfg != nil && cfg.OwningModule() != "" {
			if owner, found := rt.FindModule(cfg.OwningModule()); found {
				if err := owner.Start(rt, sink); err != nil {
					return nil, rterrors.Wrap(rterrors.ExecutableFactoryMissing, typeName, err)
				}
			}
		}
		f, ok = rt.lookupFactory(typeName)
		if !ok {
			return nil, rterrors.New(rterrors.ExecutableFactoryMissing, typeName, "no enabled factory registered for type, even after starting owning module")
		}
	}

	exec, err := instantiate(f, cfg)
	if err != nil {
		return nil, err
	}
	if owner, found := rt.FindModule(f.owningModule); found {
		if err := owner.Start(rt, sink); err != nil {
			return nil, rterrors.Wrap(rterrors.PluginStartError, f.owningModule, err)
		}
	}
	return exec, nil
}

func (rt *Runtime) lookupFactory(typeName string) (*registeredFactory, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	f, ok := rt.factories[typeName]
	if !ok || !f.enabled {
		return nil, false
	}
	return f, true
}

func instantiate(f *registeredFactory, cfg *element.Element) (exec Executable, err error) {
	defer func() {
		if r := recover(); r != nil {
			exec = nil
			err = rterrors.New(rterrors.ExecutableInstantiationError, f.typeName, fmt.Sprintf("factory panicked: %v", r))
		}
	}()
	exec, err = f.factory.Create()
	if err != nil {
		return nil, rterrors.Wrap(rterrors.ExecutableInstantiationError, f.typeName, err)
	}
	exec.SetOwningModule(f.owningModule)
	if cfg != nil {
		exec.SetInitializationData(cfg)
	}
	return exec, nil
}

func (rt *Runtime) unregisterModuleContributions(m *Module) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	m.mu.Lock()
	factoryTypeNames := m.factoryTypeNames
	extensionIDs := m.extensionIDs
	extensionPointIDs := m.extensionPointIDs
	m.factoryTypeNames = nil
	m.extensionIDs = nil
	m.extensionPointIDs = nil
	m.mu.Unlock()

	for _, t := range factoryTypeNames {
		delete(rt.factories, t)
	}
	for _, id := range extensionIDs {
		delete(rt.extensions, id)
	}
	for _, id := range extensionPointIDs {
		delete(rt.extensionPoints, id)
	}
}

// EnabledModules returns every currently-enabled module.
func (rt *Runtime) EnabledModules() []*Module {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]*Module, 0, len(rt.modules))
	for _, m := range rt.modules {
		if m.Enabled() {
			out = append(out, m)
		}
	}
	return out
}

// ExtensionsOf returns the still-registered extensions owned by
// moduleID, in no particular order.
func (rt *Runtime) ExtensionsOf(moduleID string) []*Extension {
	m, ok := rt.FindModule(moduleID)
	if !ok {
		return nil
	}
	m.mu.Lock()
	ids := append([]string(nil), m.extensionIDs...)
	m.mu.Unlock()

	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]*Extension, 0, len(ids))
	for _, id := range ids {
		if e, ok := rt.extensions[id]; ok {
			out = append(out, e)
		}
	}
	return out
}
