package validator_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coremodule/runtime/element"
	"github.com/coremodule/runtime/validator"
)

const xmlSchemaDoc = `<schema root="config">
  <rule element="config">
    <attribute name="port" required="true" type="int"/>
    <child name="host" required="true"/>
  </rule>
</schema>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateXMLSchemaPasses(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "svc.xsd", xmlSchemaDoc)

	v, err := validator.New(schemaPath, "")
	require.NoError(t, err)

	cfg := element.New("config")
	cfg.SetAttribute("port", "8080")
	host := element.New("host")
	host.SetValue("localhost")
	cfg.AddChild(host)

	assert.True(t, v.Validate(cfg))
	assert.Empty(t, v.ErrorLog())
}

func TestValidateXMLSchemaFailsMissingAttribute(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "svc.xsd", xmlSchemaDoc)

	v, err := validator.New(schemaPath, "")
	require.NoError(t, err)

	cfg := element.New("config")
	host := element.New("host")
	cfg.AddChild(host)

	assert.False(t, v.Validate(cfg))
	assert.NotEmpty(t, v.ErrorLog())
}

func TestValidateXMLSchemaFailsBadType(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "svc.xsd", xmlSchemaDoc)

	v, err := validator.New(schemaPath, "")
	require.NoError(t, err)

	cfg := element.New("config")
	cfg.SetAttribute("port", "not-a-number")
	host := element.New("host")
	cfg.AddChild(host)

	assert.False(t, v.Validate(cfg))
}

func TestEmptySchemaAlwaysValid(t *testing.T) {
	v, err := validator.New("", "")
	require.NoError(t, err)

	cfg := element.New("anything")
	assert.True(t, v.Validate(cfg))
}

func TestValidateJSONSchema(t *testing.T) {
	dir := t.TempDir()
	jsonSchemaPath := writeFile(t, dir, "svc.schema.json", `{
		"type": "object",
		"properties": {"port": {"type": "integer"}},
		"required": ["port"]
	}`)

	v, err := validator.New("", jsonSchemaPath)
	require.NoError(t, err)

	good := element.New("extension")
	cfg := element.New("config")
	cfg.SetValue(`{"port": 8080}`)
	good.AddChild(cfg)
	assert.True(t, v.Validate(good))

	bad := element.New("extension")
	badCfg := element.New("config")
	badCfg.SetValue(`{"port": "not-a-number"}`)
	bad.AddChild(badCfg)
	assert.False(t, v.Validate(bad))
}

func TestCacheDeduplicatesByKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "svc.xsd", xmlSchemaDoc)

	c := validator.NewCache()
	v1, err := c.Get(dir, "svc.xsd", "")
	require.NoError(t, err)
	v2, err := c.Get(dir, "svc.xsd", "")
	require.NoError(t, err)

	assert.Same(t, v1, v2)
}
