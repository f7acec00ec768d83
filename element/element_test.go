package element_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coremodule/runtime/element"
	"github.com/coremodule/runtime/rterrors"
)

func buildTree() *element.Element {
	root := element.New("service")
	root.SetAttribute("id", "svc1")

	child1 := element.New("param")
	child1.SetAttribute("name", "timeout")
	child1.SetValue("30")
	root.AddChild(child1)

	child2 := element.New("param")
	child2.SetAttribute("name", "retries")
	root.AddChild(child2)

	grandchild := element.New("limit")
	grandchild.SetAttribute("name", "retries")
	child2.AddChild(grandchild)

	return root
}

func TestAttributeGetters(t *testing.T) {
	root := buildTree()
	assert.Equal(t, "svc1", root.Attribute("id"))
	assert.Equal(t, "", root.Attribute("missing"))
	assert.True(t, root.HasAttribute("id"))
	assert.False(t, root.HasAttribute("missing"))

	v, err := root.MustAttribute("id")
	require.NoError(t, err)
	assert.Equal(t, "svc1", v)

	_, err = root.MustAttribute("missing")
	require.Error(t, err)
	assert.True(t, rterrors.HasKind(err, rterrors.NoSuchAttribute))
}

func TestChildrenOrderPreserved(t *testing.T) {
	root := buildTree()
	require.Len(t, root.Children(), 2)
	assert.Equal(t, "timeout", root.Children()[0].Attribute("name"))
	assert.Equal(t, "retries", root.Children()[1].Attribute("name"))
}

func TestFindWildcardUnlimitedDepth(t *testing.T) {
	root := buildTree()
	all := root.Find("", "", "", -1)
	// root + 2 children + 1 grandchild = 4, pre-order, each exactly once.
	require.Len(t, all, 4)
	assert.Equal(t, "service", all[0].Name())
	assert.Equal(t, "param", all[1].Name())
	assert.Equal(t, "timeout", all[1].Attribute("name"))
	assert.Equal(t, "param", all[2].Name())
	assert.Equal(t, "limit", all[3].Name())
}

func TestFindDepthZeroTestsOnlySelf(t *testing.T) {
	root := buildTree()
	matches := root.Find("service", "", "", 0)
	require.Len(t, matches, 1)
	assert.Same(t, root, matches[0])

	none := root.Find("param", "", "", 0)
	assert.Empty(t, none)
}

func TestFindByNameAttributeAndValue(t *testing.T) {
	root := buildTree()

	byName := root.Find("param", "", "", -1)
	assert.Len(t, byName, 2)

	byAttr := root.Find("", "name", "", -1)
	assert.Len(t, byAttr, 3) // two "param"s and the "limit" grandchild

	byAttrValue := root.Find("", "name", "retries", -1)
	require.Len(t, byAttrValue, 2) // the "retries" param and the "limit" grandchild
}

func TestCloneIsDeepAndIndependent(t *testing.T) {
	root := buildTree()
	clone := root.Clone()

	require.Equal(t, root.Name(), clone.Name())
	require.Len(t, clone.Children(), len(root.Children()))

	clone.SetAttribute("id", "changed")
	assert.Equal(t, "svc1", root.Attribute("id"))
	assert.Equal(t, "changed", clone.Attribute("id"))

	clone.Children()[0].SetValue("changed")
	assert.Equal(t, "30", root.Children()[0].Value())
}

func TestAppendValueConcatenatesInOrder(t *testing.T) {
	e := element.New("text")
	e.AppendValue("hello ")
	e.AppendValue("world")
	assert.Equal(t, "hello world", e.Value())
}

func TestOwningModuleIsWeakIdentifier(t *testing.T) {
	e := element.New("x")
	assert.Equal(t, "", e.OwningModule())
	e.SetOwningModule("foo")
	assert.Equal(t, "foo", e.OwningModule())
}
