// Package rterrors defines the typed error taxonomy shared by every
// runtime component, mapping each failure to one of the kinds in the
// error handling design.
package rterrors

import (
	"errors"
	"fmt"
)

// Kind classifies a runtime error for programmatic handling via errors.Is.
type Kind string

const (
	DescriptorNotFound           Kind = "descriptor_not_found"
	DescriptorSchemaError        Kind = "descriptor_schema_error"
	DescriptorParseError         Kind = "descriptor_parse_error"
	DuplicateIdentifier          Kind = "duplicate_identifier"
	MissingRequirement           Kind = "missing_requirement"
	LibraryLoadError             Kind = "library_load_error"
	SymbolLookupError            Kind = "symbol_lookup_error"
	PluginStartError             Kind = "plugin_start_error"
	PluginStopError              Kind = "plugin_stop_error"
	ExecutableFactoryMissing     Kind = "executable_factory_missing"
	ExecutableInstantiationError Kind = "executable_instantiation_error"
	InvalidPointReference        Kind = "invalid_point_reference"
	InvalidExtension             Kind = "invalid_extension"
	NoSuchAttribute              Kind = "no_such_attribute"
	BadExtension                 Kind = "bad_extension"
	MissingInformation           Kind = "missing_information"
	NotADirectory                Kind = "not_a_directory"
)

// Error is a chainable runtime error carrying a kind and an optional
// subject (module id, extension id, factory type name, ...).
type Error struct {
	Kind    Kind
	Subject string
	Err     error
}

func (e *Error) Error() string {
	if e.Subject == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", e.Kind, e.Subject, e.Err)
	}
	return fmt.Sprintf("%s %q", e.Kind, e.Subject)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, rterrors.KindX) by comparing kinds, matching
// the sentinel-comparison idiom used throughout the taxonomy.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds a bare error of the given kind with a subject and message.
func New(kind Kind, subject, msg string) *Error {
	var err error
	if msg != "" {
		err = errors.New(msg)
	}
	return &Error{Kind: kind, Subject: subject, Err: err}
}

// Wrap attaches a kind and subject to an underlying cause.
func Wrap(kind Kind, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: cause}
}

// Of reports the Kind carried by err, if any, and whether one was found.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// HasKind is a convenience wrapper around errors.Is for a bare kind
// sentinel, used when callers only have a Kind value in hand.
func HasKind(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}
