package runtime

import "github.com/coremodule/runtime/element"

// Executable is anything an executable_factory can produce: a plugin
// object or any other factory-constructed component. The runtime sets
// the owning-module back-reference right after construction and, when a
// configuration_element was supplied, forwards it for context-aware
// initialization (spec §4.7).
type Executable interface {
	SetOwningModule(moduleID string)
	SetInitializationData(cfg *element.Element)
}

// Plugin is the executable bound to a module's plugin_class: the object
// whose lifecycle methods drive the module's start/stop/initialize steps.
type Plugin interface {
	Executable
	Start() error
	Stop() error
	Initialize() error
	Uninitialize() error
}

// BasePlugin is an embeddable no-op Plugin implementation. Modules with
// an empty plugin_class get one automatically; a real Plugin can embed it
// to avoid implementing lifecycle methods it doesn't need.
type BasePlugin struct {
	owningModule string
	initData     *element.Element
}

func (p *BasePlugin) SetOwningModule(moduleID string)            { p.owningModule = moduleID }
func (p *BasePlugin) OwningModule() string                       { return p.owningModule }
func (p *BasePlugin) SetInitializationData(cfg *element.Element) { p.initData = cfg }
func (p *BasePlugin) InitializationData() *element.Element       { return p.initData }
func (p *BasePlugin) Start() error                               { return nil }
func (p *BasePlugin) Stop() error                                { return nil }
func (p *BasePlugin) Initialize() error                          { return nil }
func (p *BasePlugin) Uninitialize() error                        { return nil }

// Factory produces Executable instances for a registered type_name.
type Factory interface {
	Create() (Executable, error)
}

// FactoryFunc adapts a plain function to Factory.
type FactoryFunc func() (Executable, error)

func (f FactoryFunc) Create() (Executable, error) { return f() }

type registeredFactory struct {
	typeName     string
	owningModule string
	factory      Factory
	enabled      bool
}
