/*
Copyright 2024 The CloudEnvelope Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package event holds the CloudEvent envelope: a mutable, validated bag of
// context attributes plus an arbitrary data payload. An Event is not safe
// for concurrent mutation; writers need external synchronization.
package event

import (
	"fmt"

	"github.com/eventmesh-io/cloudenvelope/spec"
	"github.com/eventmesh-io/cloudenvelope/types"
)

// Event is a CloudEvent envelope. Attribute values are kept in insertion
// order alongside a side-table of resolved descriptors, so that a name can
// be introduced with an inferred type and later upgraded by a typed write.
type Event struct {
	version *spec.Version
	order   []string
	values  map[string]types.Value
	attrs   map[string]*spec.Attribute
	data    interface{}
}

// Option configures a new Event.
type Option func(*Event) error

// WithVersion selects the spec version; the default is spec.Latest.
func WithVersion(v *spec.Version) Option {
	return func(e *Event) error {
		if v == nil {
			return fmt.Errorf("spec version must not be nil")
		}
		e.version = v
		return nil
	}
}

// WithExtensions pre-registers extension attribute descriptors. Duplicate
// names, nil entries and non-extension descriptors are rejected.
func WithExtensions(exts ...*spec.Attribute) Option {
	return func(e *Event) error {
		for _, a := range exts {
			if a == nil {
				return fmt.Errorf("extension attribute must not be nil")
			}
			if !a.IsExtension() {
				return fmt.Errorf("attribute %q is not an extension", a.Name())
			}
			if _, ok := e.attrs[a.Name()]; ok {
				return fmt.Errorf("duplicate extension attribute %q", a.Name())
			}
			e.attrs[a.Name()] = a
		}
		return nil
	}
}

// New creates an empty event, by default at the latest spec version.
func New(opts ...Option) (*Event, error) {
	e := &Event{
		version: spec.Latest,
		values:  map[string]types.Value{},
		attrs:   map[string]*spec.Attribute{},
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	// Extension names must not shadow the version's own attributes.
	for name, a := range e.attrs {
		if a.IsExtension() && e.version.Attribute(name) != nil {
			return nil, fmt.Errorf("extension attribute %q collides with a spec-defined attribute", name)
		}
	}
	return e, nil
}

// Version returns the event's current spec version.
func (e *Event) Version() *spec.Version { return e.version }

// Data returns the payload slot; its shape is unconstrained.
func (e *Event) Data() interface{} { return e.data }

// SetData assigns the payload slot without validation.
func (e *Event) SetData(v interface{}) { e.data = v }

// Names returns the populated attribute names in insertion order.
func (e *Event) Names() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Attribute returns the resolved descriptor for name: a previously
// registered extension or typed write wins, then the version's own table.
// It returns nil for unknown names and for the spec-version marker.
func (e *Event) Attribute(name string) *spec.Attribute {
	if a, ok := e.attrs[name]; ok {
		return a
	}
	return e.version.Attribute(name)
}

func (e *Event) reserved(name string) error {
	if name == "" {
		return fmt.Errorf("attribute name must not be empty")
	}
	if name == e.version.MarkerName() || name == spec.SpecVersionName {
		return fmt.Errorf("the spec version attribute must be accessed via Version, not the attribute indexer")
	}
	return nil
}

// Get returns the value stored under name. A zero Value means the attribute
// is unset. Fetching the spec-version marker is an error.
func (e *Event) Get(name string) (types.Value, error) {
	if err := e.reserved(name); err != nil {
		return types.Value{}, err
	}
	return e.values[name], nil
}

// Set assigns an attribute by name. A nil value removes the attribute. For
// a name that has never been seen, only a string value is accepted: it
// registers an implicit String-typed extension. Any other type on an unseen
// name is an error; introduce a descriptor with SetAttribute instead.
func (e *Event) Set(name string, value interface{}) error {
	if err := e.reserved(name); err != nil {
		return err
	}
	if name == spec.DataName {
		return fmt.Errorf("data is not an attribute; use SetData")
	}
	if value == nil {
		e.remove(name)
		return nil
	}
	a := e.Attribute(name)
	if a == nil {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("attribute %q is unknown and the value is %T; only string values may introduce a new attribute by name", name, value)
		}
		ext, err := spec.NewExtension(name, types.String)
		if err != nil {
			return err
		}
		if err := e.commit(ext, types.NewString(s)); err != nil {
			return err
		}
		return nil
	}
	v, err := a.Type().ValueOf(value)
	if err != nil {
		return &spec.AttributeError{Name: name, Err: err}
	}
	return e.commit(a, v)
}

// SetAttribute assigns an attribute through an explicit descriptor. When the
// name already resolves to a different descriptor of the same name and type,
// the registry entry is updated, upgrading an inferred String extension to
// the explicit one. A nil value removes the attribute.
func (e *Event) SetAttribute(a *spec.Attribute, value interface{}) error {
	if a == nil {
		return fmt.Errorf("attribute descriptor must not be nil")
	}
	if err := e.reserved(a.Name()); err != nil {
		return err
	}
	if existing := e.Attribute(a.Name()); existing != nil && existing != a {
		if !existing.Equal(a) {
			return fmt.Errorf("attribute %q is already registered as %s", a.Name(), existing)
		}
	}
	if value == nil {
		e.attrs[a.Name()] = a
		e.remove(a.Name())
		return nil
	}
	v, err := a.Type().ValueOf(value)
	if err != nil {
		return &spec.AttributeError{Name: a.Name(), Err: err}
	}
	return e.commit(a, v)
}

// SetFromString parses text with the attribute's type and assigns the
// result. An unseen name is registered as a String extension first.
func (e *Event) SetFromString(name, text string) error {
	if err := e.reserved(name); err != nil {
		return err
	}
	a := e.Attribute(name)
	if a == nil {
		ext, err := spec.NewExtension(name, types.String)
		if err != nil {
			return err
		}
		a = ext
	}
	v, err := a.Parse(text)
	if err != nil {
		return err
	}
	return e.commit(a, v)
}

// commit validates and then stores; a failed write leaves the event
// unchanged.
func (e *Event) commit(a *spec.Attribute, v types.Value) error {
	if err := a.Validate(v); err != nil {
		return err
	}
	name := a.Name()
	if _, ok := e.values[name]; !ok {
		e.order = append(e.order, name)
	}
	e.values[name] = v
	e.attrs[name] = a
	return nil
}

func (e *Event) remove(name string) {
	if _, ok := e.values[name]; !ok {
		return
	}
	delete(e.values, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Validate checks that every attribute the current spec version requires is
// populated, reporting all missing names at once.
func (e *Event) Validate() error {
	var missing []string
	for _, a := range e.version.Required() {
		if _, ok := e.values[a.Name()]; !ok {
			missing = append(missing, a.Name())
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// IsValid is the non-erroring form of Validate.
func (e *Event) IsValid() bool { return e.Validate() == nil }

// SetVersion converts the event to another spec version, re-keying every
// well-known attribute whose canonical name differs between the versions.
// Extension attributes are untouched; a concept the target version lacks
// keeps its current key.
func (e *Event) SetVersion(nv *spec.Version) error {
	if nv == nil {
		return fmt.Errorf("spec version must not be nil")
	}
	if nv == e.version {
		return nil
	}
	type rename struct {
		from, to string
		attr     *spec.Attribute
	}
	var renames []rename
	for _, c := range spec.Concepts() {
		oldName, okOld := e.version.Name(c)
		newName, okNew := nv.Name(c)
		if !okOld || !okNew || oldName == newName {
			continue
		}
		if _, ok := e.values[oldName]; !ok {
			continue
		}
		if _, clash := e.values[newName]; clash {
			return fmt.Errorf("cannot convert to version %s: attribute %q already exists", nv, newName)
		}
		renames = append(renames, rename{from: oldName, to: newName, attr: nv.AttributeFor(c)})
	}
	for _, r := range renames {
		v := e.values[r.from]
		delete(e.values, r.from)
		delete(e.attrs, r.from)
		e.values[r.to] = v
		e.attrs[r.to] = r.attr
		for i, n := range e.order {
			if n == r.from {
				e.order[i] = r.to
				break
			}
		}
	}
	// Re-resolve descriptors for concepts whose names did not change.
	for name := range e.values {
		if a := nv.Attribute(name); a != nil {
			e.attrs[name] = a
		}
	}
	e.version = nv
	return nil
}

// Clone returns a deep-enough copy: descriptors are shared (immutable), the
// value bag is copied, the data slot is shared.
func (e *Event) Clone() *Event {
	c := &Event{
		version: e.version,
		order:   append([]string(nil), e.order...),
		values:  make(map[string]types.Value, len(e.values)),
		attrs:   make(map[string]*spec.Attribute, len(e.attrs)),
		data:    e.data,
	}
	for k, v := range e.values {
		c.values[k] = v
	}
	for k, a := range e.attrs {
		c.attrs[k] = a
	}
	return c
}

// String renders the event for diagnostics.
func (e *Event) String() string {
	s := fmt.Sprintf("CloudEvent %s,\n", e.version)
	for _, name := range e.order {
		s += fmt.Sprintf("  %s: %s\n", name, e.values[name])
	}
	if e.data != nil {
		s += fmt.Sprintf("  data: %v\n", e.data)
	}
	return s
}
