// Package descriptor parses a module's on-disk plugin.xml (and its
// optional plugin.overrides.yaml sibling) into plain descriptor values.
// It has no dependency on the runtime/module types so that the runtime
// package can depend on it without forming an import cycle; the caller
// (runtime.AddModules) is responsible for turning a Descriptor into a
// registered Module.
package descriptor

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/coremodule/runtime/element"
	"github.com/coremodule/runtime/rterrors"
	"github.com/coremodule/runtime/validator"
	"github.com/coremodule/runtime/version"
)

//go:embed plugin_schema.xml
var pluginSchemaXML []byte

var (
	pluginSchemaOnce sync.Once
	pluginSchema     *validator.Validator
	pluginSchemaErr  error
)

// pluginValidator lazily compiles the bundled plugin.xml schema once per
// process; every CreateModule call shares the same compiled Validator.
func pluginValidator() (*validator.Validator, error) {
	pluginSchemaOnce.Do(func() {
		pluginSchema, pluginSchemaErr = validator.NewFromBytes(pluginSchemaXML)
	})
	return pluginSchema, pluginSchemaErr
}

// ExtensionDescriptor is the parsed form of a <extension> child.
type ExtensionDescriptor struct {
	ID         string
	Implements string
	Config     *element.Element
}

// ExtensionPointDescriptor is the parsed form of an <extension-point> child.
type ExtensionPointDescriptor struct {
	ID             string
	SchemaPath     string
	JSONSchemaPath string
}

// Descriptor is everything create_module reads out of one plugin.xml,
// plus the derived resource/library locations and merged parameters.
type Descriptor struct {
	ID                string
	Version           version.Version
	Priority          int
	Library           bool
	LibraryBaseName   string
	PluginClass       string
	Requirements      []string
	Extensions        []ExtensionDescriptor
	ExtensionPoints   []ExtensionPointDescriptor
	Parameters        map[string]string
	ResourcesLocation string
	LibraryLocation   string
}

// Options configures CreateModules/CreateModule.
type Options struct {
	// Logger receives debug/warn diagnostics for skipped directories and
	// malformed whitespace text nodes. Defaults to slog.Default().
	Logger *slog.Logger
	// AlreadyRegistered reports whether id is already known to the
	// runtime; when true, CreateModule returns (nil, nil) — duplicate
	// discovery is not an error (spec §4.4 step 4).
	AlreadyRegistered func(id string) bool
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) alreadyRegistered(id string) bool {
	if o.AlreadyRegistered == nil {
		return false
	}
	return o.AlreadyRegistered(id)
}

// CreateModules walks the first-level entries of dir; for each directory
// entry it attempts CreateModule, skipping (debug-log only) any entry
// that fails to parse or validate.
func CreateModules(dir string, opts Options) ([]*Descriptor, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.NotADirectory, dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, rterrors.New(rterrors.NotADirectory, dir, "not a directory")
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.NotADirectory, dir, err)
	}

	var out []*Descriptor
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(abs, e.Name())
		d, err := CreateModule(candidate, opts)
		if err != nil {
			opts.logger().Debug("skipping module candidate", "dir", candidate, "error", err)
			continue
		}
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

// CreateModule parses dir/plugin.xml into a Descriptor. It returns
// (nil, nil) when the id is already registered (duplicate discovery is
// not an error, spec §4.4).
func CreateModule(dir string, opts Options) (*Descriptor, error) {
	descriptorPath := filepath.Join(dir, "plugin.xml")
	data, err := os.ReadFile(descriptorPath)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.DescriptorNotFound, dir, err)
	}

	root, err := parseDocument(data, dir)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.DescriptorParseError, dir, err)
	}
	if root.Name != "plugin" {
		return nil, rterrors.New(rterrors.DescriptorParseError, dir, fmt.Sprintf("unexpected root element %q", root.Name))
	}

	pv, err := pluginValidator()
	if err != nil {
		return nil, rterrors.Wrap(rterrors.DescriptorSchemaError, dir, err)
	}
	if !pv.Validate(rawToElement(root)) {
		return nil, rterrors.New(rterrors.DescriptorSchemaError, dir, fmt.Sprintf("plugin.xml failed schema validation: %v", pv.ErrorLog()))
	}

	id := strings.TrimLeft(root.Attrs["id"], ":")
	if id == "" {
		return nil, rterrors.New(rterrors.DescriptorSchemaError, dir, "plugin id is required")
	}
	if opts.alreadyRegistered(id) {
		return nil, nil
	}

	library := false
	if v, ok := root.Attrs["library"]; ok {
		library, err = strconv.ParseBool(v)
		if err != nil {
			return nil, rterrors.Wrap(rterrors.DescriptorSchemaError, dir, fmt.Errorf("invalid library attribute %q: %w", v, err))
		}
	}

	priority := 0
	if v, ok := root.Attrs["priority"]; ok {
		priority, err = strconv.Atoi(v)
		if err != nil {
			return nil, rterrors.Wrap(rterrors.DescriptorSchemaError, dir, fmt.Errorf("invalid priority attribute %q: %w", v, err))
		}
	}

	d := &Descriptor{
		ID:                id,
		Priority:          priority,
		Library:           library,
		Parameters:        map[string]string{},
		ResourcesLocation: dir,
		LibraryLocation:   deriveLibraryLocation(dir),
	}

	if v, ok := root.Attrs["version"]; ok && v != "" {
		parsed, err := version.Parse(v)
		if err != nil {
			return nil, rterrors.Wrap(rterrors.DescriptorSchemaError, dir, err)
		}
		d.Version = parsed
	}

	if library {
		d.LibraryBaseName = libraryBaseName(id)
		d.PluginClass = id + "::Plugin"
	}

	for _, child := range root.Children {
		switch child.Name {
		case "requirement":
			reqID, ok := child.Attrs["id"]
			if !ok || reqID == "" {
				return nil, rterrors.New(rterrors.DescriptorParseError, dir, "requirement missing id")
			}
			d.Requirements = append(d.Requirements, reqID)

		case "extension-point":
			epID, ok := child.Attrs["id"]
			if !ok || epID == "" {
				return nil, rterrors.New(rterrors.DescriptorParseError, dir, "extension-point missing id")
			}
			d.ExtensionPoints = append(d.ExtensionPoints, ExtensionPointDescriptor{
				ID:             epID,
				SchemaPath:     child.Attrs["schema"],
				JSONSchemaPath: child.Attrs["json-schema"],
			})

		case "extension":
			extID := child.Attrs["id"]
			implements := child.Attrs["implements"]
			cfgRoot := element.New("extension")
			for _, gc := range child.Children {
				cfgRoot.AddChild(toElement(gc, id, opts.logger()))
			}
			cfgRoot.SetOwningModule(id)
			d.Extensions = append(d.Extensions, ExtensionDescriptor{
				ID:         extID,
				Implements: implements,
				Config:     cfgRoot,
			})

		case "point":
			return nil, rterrors.New(rterrors.DescriptorParseError, dir, "legacy <point> element is no longer supported; use <extension-point>")

		default:
			// Any other top-level element is ignored at the plugin.xml
			// level; generic configuration_element materialization only
			// applies inside <extension> subtrees (spec §4.4).
		}
	}

	if err := mergeOverrides(dir, d); err != nil {
		return nil, rterrors.Wrap(rterrors.DescriptorParseError, dir, err)
	}

	return d, nil
}

func libraryBaseName(id string) string {
	name := strings.ReplaceAll(id, "::", "_")
	return strings.TrimLeft(name, "_")
}

// deriveLibraryLocation rewrites the last "share" path segment to "lib",
// the platform-neutral form of spec §6.3's directory rule.
func deriveLibraryLocation(resourcesLocation string) string {
	parts := strings.Split(filepath.ToSlash(resourcesLocation), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == "share" {
			parts[i] = "lib"
			return filepath.FromSlash(strings.Join(parts, "/"))
		}
	}
	return resourcesLocation
}

type overridesFile struct {
	Parameters map[string]string `yaml:"parameters"`
}

// mergeOverrides merges a sibling plugin.overrides.yaml's parameters into
// d.Parameters (SPEC_FULL §2.2 supplement); absence is not an error.
func mergeOverrides(dir string, d *Descriptor) error {
	path := filepath.Join(dir, "plugin.overrides.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var of overridesFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for k, v := range of.Parameters {
		d.Parameters[k] = v
	}
	return nil
}

// rawToElement converts a raw parsed node into a bare configuration_element,
// with no module back-reference or whitespace warnings — used only to hand
// a just-parsed document to the schema validator, before anything is known
// about module identity.
func rawToElement(r *rawElement) *element.Element {
	e := element.New(r.Name)
	for k, v := range r.Attrs {
		e.SetAttribute(k, v)
	}
	if r.Text != "" {
		e.AppendValue(r.Text)
	}
	for _, c := range r.Children {
		e.AddChild(rawToElement(c))
	}
	return e
}

func toElement(r *rawElement, moduleID string, logger *slog.Logger) *element.Element {
	e := element.New(r.Name)
	for k, v := range r.Attrs {
		e.SetAttribute(k, v)
	}
	text := r.Text
	if strings.TrimSpace(text) == "" {
		if strings.ContainsAny(text, "\n\t") && text != "" {
			logger.Warn("whitespace-only text node with embedded newline/tab; consider CDATA", "element", r.Name, "module", moduleID)
		}
	} else {
		e.AppendValue(text)
	}
	e.SetOwningModule(moduleID)
	for _, c := range r.Children {
		e.AddChild(toElement(c, moduleID, logger))
	}
	return e
}

// rawElement is the generic XML tree produced by the tokenizer below,
// before it is known whether a node is a <requirement>, <extension>, or
// plain configuration_element.
type rawElement struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*rawElement
}

// parseDocument decodes data into a rawElement tree rooted at its single
// top-level element, resolving one pass of XInclude (spec §4.4 step 3,
// §6.1) against baseDir.
func parseDocument(data []byte, baseDir string) (*rawElement, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *rawElement
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			root, err = decodeElement(dec, start)
			if err != nil {
				return nil, err
			}
			break
		}
	}
	if root == nil {
		return nil, fmt.Errorf("empty document")
	}
	if err := resolveXInclude(root, baseDir); err != nil {
		return nil, err
	}
	return root, nil
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (*rawElement, error) {
	e := &rawElement{Name: start.Name.Local, Attrs: map[string]string{}}
	for _, a := range start.Attr {
		e.Attrs[a.Name.Local] = a.Value
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			e.Children = append(e.Children, child)
		case xml.CharData:
			e.Text += string(t)
		case xml.EndElement:
			return e, nil
		}
	}
}

// resolveXInclude replaces any <include href="..."/> (XInclude
// namespace local-name "include") with the children of the referenced
// file's root element, resolved relative to baseDir.
func resolveXInclude(e *rawElement, baseDir string) error {
	var expanded []*rawElement
	for _, c := range e.Children {
		if c.Name == "include" {
			href, ok := c.Attrs["href"]
			if !ok || href == "" {
				return fmt.Errorf("xinclude: missing href")
			}
			data, err := os.ReadFile(filepath.Join(baseDir, href))
			if err != nil {
				return fmt.Errorf("xinclude %s: %w", href, err)
			}
			included, err := parseDocument(data, baseDir)
			if err != nil {
				return fmt.Errorf("xinclude %s: %w", href, err)
			}
			expanded = append(expanded, included.Children...)
			continue
		}
		if err := resolveXInclude(c, baseDir); err != nil {
			return err
		}
		expanded = append(expanded, c)
	}
	e.Children = expanded
	return nil
}
