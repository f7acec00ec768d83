// Package dl implements platform-abstracted loading of the native dynamic
// libraries a module may declare (plugin.xml's library="true"). The
// directory-scan and name-decoration rules are platform-neutral; opening
// the matched file and resolving symbols is delegated to a per-OS
// implementation (see dl_unix.go, dl_windows.go).
package dl

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"

	"github.com/coremodule/runtime/rterrors"
)

// Library loads at most one native code library for a single module. At
// most one handle is held per instance; repeated Load while loaded is a
// no-op (spec §4.2 invariant).
type Library struct {
	name       string
	searchPath string

	mu     sync.Mutex
	loaded bool
	handle platformHandle
	path   string // resolved file path, once loaded
}

// New creates a loader for the named library (the descriptor-derived base
// name, e.g. "foo_bar" for module id "foo::bar").
func New(name string) *Library {
	return &Library{name: name}
}

// SetSearchPath records the directory that Load will scan.
func (l *Library) SetSearchPath(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.searchPath = dir
}

// namePattern builds the platform regex matching the decorated library
// filename for goos, per spec §4.2:
//
//	linux:   lib<name>.so[0-9.]*
//	darwin:  lib<name>[0-9.]*.dylib
//	windows: <name>.dll
func namePattern(goos, name string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(name)
	var pattern string
	switch goos {
	case "linux":
		pattern = `^lib` + quoted + `\.so[0-9.]*$`
	case "darwin":
		pattern = `^lib` + quoted + `[0-9.]*\.dylib$`
	case "windows":
		pattern = `^` + quoted + `\.dll$`
	default:
		return nil, fmt.Errorf("dl: unsupported GOOS %q", goos)
	}
	return regexp.Compile(pattern)
}

// Load scans the search path for a file matching the platform's decorated
// name and opens it with lazy binding and global symbol resolution. It is
// a no-op if a handle is already held.
func (l *Library) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return nil
	}
	if l.searchPath == "" {
		return rterrors.New(rterrors.LibraryLoadError, l.name, "no search path set")
	}

	re, err := namePattern(runtime.GOOS, l.name)
	if err != nil {
		return rterrors.Wrap(rterrors.LibraryLoadError, l.name, err)
	}

	entries, err := os.ReadDir(l.searchPath)
	if err != nil {
		return rterrors.Wrap(rterrors.LibraryLoadError, l.name, err)
	}

	var match string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if re.MatchString(e.Name()) {
			match = filepath.Join(l.searchPath, e.Name())
			break
		}
	}
	if match == "" {
		return rterrors.New(rterrors.LibraryLoadError, l.name, fmt.Sprintf("no library matching %q found in %s", re.String(), l.searchPath))
	}

	h, err := loadPlatform(match)
	if err != nil {
		return rterrors.Wrap(rterrors.LibraryLoadError, l.name, err)
	}
	l.handle = h
	l.path = match
	l.loaded = true
	return nil
}

// Unload releases the handle. Idempotent: unloading when nothing is
// loaded succeeds silently. Failure is reported but never leaves the
// loader pointing at a half-closed handle.
func (l *Library) Unload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		return nil
	}
	err := l.handle.Close()
	l.handle = nil
	l.loaded = false
	if err != nil {
		return rterrors.Wrap(rterrors.LibraryLoadError, l.name, err)
	}
	return nil
}

// IsLoaded reports whether a handle is currently held.
func (l *Library) IsLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Path returns the resolved library file path, once loaded.
func (l *Library) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// GetSymbol resolves a named symbol from the loaded library.
func (l *Library) GetSymbol(name string) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		return 0, rterrors.New(rterrors.SymbolLookupError, name, "library not loaded")
	}
	addr, err := l.handle.Symbol(name)
	if err != nil {
		return 0, rterrors.Wrap(rterrors.SymbolLookupError, name, err)
	}
	return addr, nil
}

// platformHandle is the minimal per-OS surface dl needs: resolve a
// symbol address, and release the handle. Unloading a library mapped
// into a running process has no portable guarantee of actually unmapping
// the code (stoppers may still be executing from it); Close is
// best-effort bookkeeping, matching the original dl::Posix note that
// destruction-time unload is implementation-defined.
type platformHandle interface {
	Symbol(name string) (uintptr, error)
	Close() error
}
