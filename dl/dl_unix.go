//go:build linux || darwin

package dl

import (
	"fmt"
	"plugin"
	"reflect"
)

// unixHandle wraps the standard library's plugin.Plugin, the only
// in-process dynamic-loading primitive available on these platforms in
// the retrieved reference set (see DESIGN.md for why no third-party
// dlopen wrapper is used instead).
type unixHandle struct {
	p *plugin.Plugin
}

func loadPlatform(path string) (platformHandle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &unixHandle{p: p}, nil
}

func (h *unixHandle) Symbol(name string) (uintptr, error) {
	sym, err := h.p.Lookup(name)
	if err != nil {
		return 0, err
	}
	v := reflect.ValueOf(sym)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func:
		return v.Pointer(), nil
	default:
		return 0, fmt.Errorf("symbol %q is neither a function nor a pointer", name)
	}
}

// Close is a no-op: the standard library's plugin package provides no
// mechanism to unmap a loaded plugin from the process. This mirrors the
// original dl::Posix note that unload-on-destruction is
// implementation-defined to avoid tearing down code a stopper callback
// may still be executing from.
func (h *unixHandle) Close() error {
	return nil
}
