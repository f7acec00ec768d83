// Package profile implements the state machine that activates, starts,
// runs, and stops a fixed set of modules (spec §4.10).
package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/coremodule/runtime/rterrors"
	"github.com/coremodule/runtime/runtime"
	"github.com/coremodule/runtime/version"
)

// Activator enables a module, applies its parameters, and selectively
// disables some of its extensions/extension-points (spec §3, §4.10).
type Activator struct {
	ModuleID                string
	ModuleVersion           version.Version
	Parameters              map[string]string
	DisabledExtensions      []string
	DisabledExtensionPoints []string
}

// Starter names a module to start, in registration order.
type Starter struct {
	ModuleID      string
	ModuleVersion version.Version
}

// Profile is the ordered action list produced by profile_reader (or
// built programmatically) and executed against a Runtime.
type Profile struct {
	Name                string
	ProfileVersion      string
	FilePath            string
	CheckSingleInstance bool

	Logger *slog.Logger

	activators []Activator
	starters   []Starter
	runFunc    func(*Profile) int

	mu             sync.Mutex
	stoppers       []string // push order == start order
	uninitializers []string
}

var _ runtime.StopperSink = (*Profile)(nil)

// New creates an empty profile. The default Run behavior is Setup then
// Cleanup, returning 0.
func New(name, profileVersion string) *Profile {
	return &Profile{Name: name, ProfileVersion: profileVersion, Logger: slog.Default()}
}

// AddActivator appends an activator, applied in the order added.
func (p *Profile) AddActivator(a Activator) { p.activators = append(p.activators, a) }

// AddStarter appends a starter, applied in the order added.
func (p *Profile) AddStarter(s Starter) { p.starters = append(p.starters, s) }

// SetRunFunc overrides the default run() behavior (setup then cleanup).
func (p *Profile) SetRunFunc(f func(*Profile) int) { p.runFunc = f }

// PushStopper records moduleID as about to start its plugin, satisfying
// runtime.StopperSink so stop order naturally inverts start order even
// across transitively-started requirements (spec §4.8 step 6).
func (p *Profile) PushStopper(moduleID string) {
	p.mu.Lock()
	p.stoppers = append(p.stoppers, moduleID)
	p.mu.Unlock()
}

func (p *Profile) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Start runs the activator pass, the extension validation pass, and the
// starter pass, in that order (spec §4.10). It is fatal-on-first-error:
// activation or validation failures abort before any module is started.
func (p *Profile) Start(rt *runtime.Runtime) error {
	for _, a := range p.activators {
		if err := p.applyActivator(rt, a); err != nil {
			return err
		}
	}

	for _, m := range rt.EnabledModules() {
		for _, ext := range rt.ExtensionsOf(m.Identifier()) {
			if !ext.Enabled() {
				continue
			}
			if err := ext.Validate(rt); err != nil {
				return err
			}
		}
	}

	for _, s := range p.starters {
		m, ok := rt.FindEnabledModule(s.ModuleID)
		if !ok {
			return rterrors.New(rterrors.MissingRequirement, s.ModuleID, "starter references unknown or disabled module")
		}
		if m.Started() {
			p.logger().Warn("module already started, skipping starter", "module", s.ModuleID)
			continue
		}
		if err := m.Start(rt, p); err != nil {
			return err
		}
	}
	return nil
}

func (p *Profile) applyActivator(rt *runtime.Runtime, a Activator) error {
	m, ok := rt.FindModule(a.ModuleID)
	if !ok {
		return rterrors.New(rterrors.MissingRequirement, a.ModuleID, "activator references unknown module")
	}
	m.SetEnabled(true)
	for k, v := range a.Parameters {
		m.AddParameter(k, v)
	}
	for _, id := range a.DisabledExtensions {
		if !m.HasExtension(id) {
			p.logger().Warn("activator disables unknown extension", "module", a.ModuleID, "extension", id)
			continue
		}
		if err := m.SetEnableExtension(rt, id, false); err != nil {
			return err
		}
	}
	for _, id := range a.DisabledExtensionPoints {
		if !m.HasExtensionPoint(id) {
			p.logger().Warn("activator disables unknown extension point", "module", a.ModuleID, "point", id)
			continue
		}
		if err := m.SetEnableExtensionPoint(rt, id, false); err != nil {
			return err
		}
	}
	return nil
}

// Run invokes the host-supplied callback, or the default (Setup then
// Cleanup, returning 0). The return value is the process exit code. Every
// invocation is tagged with a fresh UUID correlation id so the setup,
// cleanup, and any host-supplied run() log lines for one run can be
// grepped out of an otherwise-interleaved log stream.
func (p *Profile) Run(rt *runtime.Runtime) int {
	runID := uuid.NewString()
	logger := p.logger().With("run_id", runID)
	logger.Info("profile run starting", "profile", p.Name, "version", p.ProfileVersion)

	if p.runFunc != nil {
		prev := p.Logger
		p.Logger = logger
		defer func() { p.Logger = prev }()
		return p.runFunc(p)
	}
	if err := p.Setup(rt); err != nil {
		logger.Error("profile setup failed", "error", err)
		return 1
	}
	if err := p.Cleanup(rt); err != nil {
		logger.Error("profile cleanup failed", "error", err)
		return 1
	}
	return 0
}

// Setup initializes every started module in start order, pushing a
// symmetric uninitializer for each (spec §4.10).
func (p *Profile) Setup(rt *runtime.Runtime) error {
	p.mu.Lock()
	started := append([]string(nil), p.stoppers...)
	p.mu.Unlock()

	for _, id := range started {
		m, ok := rt.FindModule(id)
		if !ok {
			continue
		}
		if err := m.Initialize(); err != nil {
			return rterrors.Wrap(rterrors.PluginStartError, id, err)
		}
		p.mu.Lock()
		p.uninitializers = append(p.uninitializers, id)
		p.mu.Unlock()
	}
	return nil
}

// Cleanup drains the uninitializer stack in reverse order.
func (p *Profile) Cleanup(rt *runtime.Runtime) error {
	p.mu.Lock()
	toUninit := append([]string(nil), p.uninitializers...)
	p.uninitializers = nil
	p.mu.Unlock()

	var errs []error
	for i := len(toUninit) - 1; i >= 0; i-- {
		m, ok := rt.FindModule(toUninit[i])
		if !ok {
			continue
		}
		if err := m.Uninitialize(); err != nil {
			errs = append(errs, fmt.Errorf("uninitialize %s: %w", toUninit[i], err))
		}
	}
	return errors.Join(errs...)
}

// Stop drains the stopper stack in reverse registration order, the
// inverse of the order modules were actually started (spec §4.10).
func (p *Profile) Stop(rt *runtime.Runtime) error {
	p.mu.Lock()
	toStop := append([]string(nil), p.stoppers...)
	p.stoppers = nil
	p.mu.Unlock()

	var errs []error
	for i := len(toStop) - 1; i >= 0; i-- {
		m, ok := rt.FindModule(toStop[i])
		if !ok {
			continue
		}
		if err := m.Stop(rt); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", toStop[i], err))
		}
	}
	return errors.Join(errs...)
}
