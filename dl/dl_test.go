package dl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamePatternLinux(t *testing.T) {
	re, err := namePattern("linux", "foo_bar")
	require.NoError(t, err)
	for _, ok := range []string{"libfoo_bar.so", "libfoo_bar.so.1", "libfoo_bar.so.1.2.3"} {
		assert.Truef(t, re.MatchString(ok), "expected match for %q", ok)
	}
	for _, bad := range []string{"libfoo_bar.so.debug.tar", "libfoo_bar.dylib", "foo_bar.dll", "libother.so"} {
		assert.Falsef(t, re.MatchString(bad), "expected no match for %q", bad)
	}
}

func TestNamePatternDarwin(t *testing.T) {
	re, err := namePattern("darwin", "foo")
	require.NoError(t, err)
	assert.True(t, re.MatchString("libfoo.dylib"), "expected dylib match")
	assert.True(t, re.MatchString("libfoo1.2.dylib"), "expected versioned dylib match")
	assert.False(t, re.MatchString("libfoo.so"), "unexpected match for .so on darwin pattern")
}

func TestNamePatternWindows(t *testing.T) {
	re, err := namePattern("windows", "foo")
	require.NoError(t, err)
	assert.True(t, re.MatchString("foo.dll"), "expected match for foo.dll")
	assert.False(t, re.MatchString("libfoo.dll"), "unexpected match for libfoo.dll")
}

func TestLoadWithoutSearchPathFails(t *testing.T) {
	l := New("foo")
	require.Error(t, l.Load(), "expected error loading without a search path")
}

func TestLoadNoMatchFails(t *testing.T) {
	l := New("nonexistent_lib_xyz")
	l.SetSearchPath(t.TempDir())
	require.Error(t, l.Load(), "expected error when no library file matches")
}

func TestUnloadWithoutLoadIsNoop(t *testing.T) {
	l := New("foo")
	require.NoError(t, l.Unload())
	assert.False(t, l.IsLoaded())
}
