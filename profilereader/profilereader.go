// Package profilereader parses an application profile.xml into a
// profile.Profile ready to be executed (spec §4.11, §6.2).
package profilereader

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/coremodule/runtime/element"
	"github.com/coremodule/runtime/profile"
	"github.com/coremodule/runtime/rterrors"
	"github.com/coremodule/runtime/validator"
	"github.com/coremodule/runtime/version"
)

//go:embed profile_schema.xml
var profileSchemaXML []byte

var (
	profileSchemaOnce sync.Once
	profileSchema     *validator.Validator
	profileSchemaErr  error
)

// profileValidator lazily compiles the bundled profile.xml schema once per
// process; every Read call shares the same compiled Validator.
func profileValidator() (*validator.Validator, error) {
	profileSchemaOnce.Do(func() {
		profileSchema, profileSchemaErr = validator.NewFromBytes(profileSchemaXML)
	})
	return profileSchema, profileSchemaErr
}

// parseElementTree decodes data into a bare configuration_element tree,
// used only to hand the document to the schema validator before the
// typed xmlProfile decode below runs.
func parseElementTree(data []byte) (*element.Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return decodeElementNode(dec, start)
		}
	}
}

func decodeElementNode(dec *xml.Decoder, start xml.StartElement) (*element.Element, error) {
	e := element.New(start.Name.Local)
	for _, a := range start.Attr {
		e.SetAttribute(a.Name.Local, a.Value)
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElementNode(dec, t)
			if err != nil {
				return nil, err
			}
			e.AddChild(child)
		case xml.CharData:
			e.AppendValue(string(t))
		case xml.EndElement:
			return e, nil
		}
	}
}

type xmlProfile struct {
	XMLName             xml.Name      `xml:"profile"`
	Name                string        `xml:"name,attr"`
	Version             string        `xml:"version,attr"`
	CheckSingleInstance string        `xml:"check-single-instance,attr"`
	Activates           []xmlActivate `xml:"activate"`
	Starts              []xmlStart    `xml:"start"`
}

type xmlActivate struct {
	ID                     string     `xml:"id,attr"`
	Version                string     `xml:"version,attr"`
	Params                 []xmlParam `xml:"param"`
	DisableExtensionPoints []xmlIDRef `xml:"disable-extension-point"`
	DisableExtensions      []xmlIDRef `xml:"disable-extension"`
}

type xmlParam struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

type xmlIDRef struct {
	ID string `xml:"id,attr"`
}

type xmlStart struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
}

// Read parses the profile.xml at path into an executable profile.Profile.
func Read(path string) (*profile.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.DescriptorNotFound, path, err)
	}

	root, err := parseElementTree(data)
	if err != nil {
		return nil, rterrors.Wrap(rterrors.DescriptorParseError, path, err)
	}
	sv, err := profileValidator()
	if err != nil {
		return nil, rterrors.Wrap(rterrors.DescriptorSchemaError, path, err)
	}
	if !sv.Validate(root) {
		return nil, rterrors.New(rterrors.DescriptorSchemaError, path, fmt.Sprintf("profile.xml failed schema validation: %v", sv.ErrorLog()))
	}

	var xp xmlProfile
	if err := xml.Unmarshal(data, &xp); err != nil {
		return nil, rterrors.Wrap(rterrors.DescriptorParseError, path, err)
	}
	if xp.Name == "" || xp.Version == "" {
		return nil, rterrors.New(rterrors.DescriptorSchemaError, path, "profile name and version are required")
	}

	p := profile.New(xp.Name, xp.Version)
	p.FilePath = path
	if xp.CheckSingleInstance != "" {
		b, err := strconv.ParseBool(xp.CheckSingleInstance)
		if err != nil {
			return nil, rterrors.Wrap(rterrors.DescriptorSchemaError, path, err)
		}
		p.CheckSingleInstance = b
	}

	for _, a := range xp.Activates {
		act := profile.Activator{ModuleID: a.ID, Parameters: map[string]string{}}
		if a.Version != "" {
			v, err := version.Parse(a.Version)
			if err != nil {
				return nil, rterrors.Wrap(rterrors.DescriptorSchemaError, path, err)
			}
			act.ModuleVersion = v
		}
		for _, pm := range a.Params {
			act.Parameters[pm.ID] = pm.Value
		}
		for _, d := range a.DisableExtensionPoints {
			act.DisabledExtensionPoints = append(act.DisabledExtensionPoints, d.ID)
		}
		for _, d := range a.DisableExtensions {
			act.DisabledExtensions = append(act.DisabledExtensions, d.ID)
		}
		p.AddActivator(act)
	}

	for _, s := range xp.Starts {
		st := profile.Starter{ModuleID: s.ID}
		if s.Version != "" {
			v, err := version.Parse(s.Version)
			if err != nil {
				return nil, rterrors.Wrap(rterrors.DescriptorSchemaError, path, err)
			}
			st.ModuleVersion = v
		}
		p.AddStarter(st)
	}

	return p, nil
}
