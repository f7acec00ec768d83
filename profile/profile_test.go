package profile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coremodule/runtime/profile"
	"github.com/coremodule/runtime/runtime"
)

func writeModule(t *testing.T, root, name, pluginXML string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.xml"), []byte(pluginXML), 0o644))
}

func TestProfileStartsInDependencyOrderAndStopsInReverse(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "base", `<plugin id="svc::base"></plugin>`)
	writeModule(t, root, "top", `<plugin id="svc::top"><requirement id="svc::base"/></plugin>`)

	rt := runtime.New(nil)
	require.NoError(t, rt.AddModules(root))

	p := profile.New("demo", "1.0.0")
	p.AddStarter(profile.Starter{ModuleID: "svc::top"})

	require.NoError(t, p.Start(rt))

	base, _ := rt.FindModule("svc::base")
	top, _ := rt.FindModule("svc::top")
	assert.True(t, base.Started())
	assert.True(t, top.Started())

	require.NoError(t, p.Stop(rt))
	assert.False(t, base.Started())
	assert.False(t, top.Started())
}

func TestProfileActivatorAppliesParametersAndDisablesExtension(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "m", `<plugin id="svc::m">
  <extension-point id="svc::hooks"/>
  <extension implements="svc::hooks" id="svc::m::hook1"><config/></extension>
</plugin>`)

	rt := runtime.New(nil)
	require.NoError(t, rt.AddModules(root))

	p := profile.New("demo", "1.0.0")
	p.AddActivator(profile.Activator{
		ModuleID:           "svc::m",
		Parameters:         map[string]string{"retries": "3"},
		DisabledExtensions: []string{"svc::m::hook1"},
	})
	p.AddStarter(profile.Starter{ModuleID: "svc::m"})

	require.NoError(t, p.Start(rt))

	m, _ := rt.FindModule("svc::m")
	assert.Equal(t, "3", m.ParameterValue("retries"))

	ext, ok := rt.FindExtension("svc::m::hook1")
	require.True(t, ok)
	assert.False(t, ext.Enabled())
}

func TestProfileStartFailsFatallyOnInvalidExtension(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "m", `<plugin id="svc::bad">
  <extension implements="svc::missing::point" id="svc::bad::ext"><config/></extension>
</plugin>`)

	rt := runtime.New(nil)
	require.NoError(t, rt.AddModules(root))

	p := profile.New("demo", "1.0.0")
	p.AddStarter(profile.Starter{ModuleID: "svc::bad"})

	err := p.Start(rt)
	require.Error(t, err)
}

func TestProfileDefaultRunSetsUpAndCleansUp(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "m", `<plugin id="svc::run"></plugin>`)

	rt := runtime.New(nil)
	require.NoError(t, rt.AddModules(root))

	p := profile.New("demo", "1.0.0")
	p.AddStarter(profile.Starter{ModuleID: "svc::run"})
	require.NoError(t, p.Start(rt))

	code := p.Run(rt)
	assert.Equal(t, 0, code)

	m, _ := rt.FindModule("svc::run")
	assert.False(t, m.Initialized())
}

func TestProfileStarterSkipsAlreadyStartedModule(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "m", `<plugin id="svc::twice"></plugin>`)

	rt := runtime.New(nil)
	require.NoError(t, rt.AddModules(root))

	p := profile.New("demo", "1.0.0")
	p.AddStarter(profile.Starter{ModuleID: "svc::twice"})
	p.AddStarter(profile.Starter{ModuleID: "svc::twice"})

	require.NoError(t, p.Start(rt))
	m, _ := rt.FindModule("svc::twice")
	assert.True(t, m.Started())
}
