//go:build windows

package dl

import (
	"golang.org/x/sys/windows"
)

// windowsHandle wraps a raw LoadLibraryEx handle, resolved via
// GetProcAddress. This is the one platform in the reference set where a
// genuine third-party dependency (golang.org/x/sys/windows) backs the
// loader, since the standard library's plugin package does not support
// Windows at all.
type windowsHandle struct {
	h windows.Handle
}

func loadPlatform(path string) (platformHandle, error) {
	h, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	if err != nil {
		return nil, err
	}
	return &windowsHandle{h: h}, nil
}

func (h *windowsHandle) Symbol(name string) (uintptr, error) {
	addr, err := windows.GetProcAddress(h.h, name)
	if err != nil {
		return 0, err
	}
	return addr, nil
}

func (h *windowsHandle) Close() error {
	return windows.FreeLibrary(h.h)
}
