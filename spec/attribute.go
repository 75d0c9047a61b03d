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

package spec

import (
	"fmt"

	"github.com/eventmesh-io/cloudenvelope/types"
)

// Reserved attribute names that can never be used for extensions. The
// version marker is read through Event.Version and data is not an attribute.
const (
	SpecVersionName = "specversion"
	DataName        = "data"
)

// Validator is an attribute-specific validation hook, run after the
// attribute type's own validation.
type Validator interface {
	Validate(types.Value) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(types.Value) error

func (f ValidatorFunc) Validate(v types.Value) error { return f(v) }

// AttributeError is an argument-class error identifying the attribute whose
// parse, format or validation failed. The underlying cause is retained.
type AttributeError struct {
	Name string
	Err  error
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("attribute %q: %v", e.Name, e.Err)
}

func (e *AttributeError) Unwrap() error { return e.Err }

// Attribute describes one attribute slot: a name, a type, whether it is
// required, whether it is an extension, and an optional validator. Instances
// are immutable after construction and shared across events.
type Attribute struct {
	name      string
	typ       *types.Type
	required  bool
	extension bool
	validator Validator
}

// ExtensionOption configures an extension attribute at construction time.
type ExtensionOption func(*Attribute)

// WithValidator attaches a custom validator, run after type validation.
func WithValidator(v Validator) ExtensionOption {
	return func(a *Attribute) { a.validator = v }
}

// NewExtension creates an extension attribute descriptor. The name must be
// non-empty lowercase ASCII letters and digits, and must not collide with a
// reserved name.
func NewExtension(name string, t *types.Type, opts ...ExtensionOption) (*Attribute, error) {
	if t == nil {
		return nil, fmt.Errorf("extension attribute type must not be nil")
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	a := &Attribute{name: name, typ: t, extension: true}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("attribute name must not be empty")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return fmt.Errorf("attribute name %q: only lowercase ASCII letters and digits are allowed", name)
		}
	}
	if name == SpecVersionName || name == DataName {
		return fmt.Errorf("attribute name %q is reserved", name)
	}
	return nil
}

func (a *Attribute) Name() string { return a.name }
func (a *Attribute) Type() *types.Type { return a.typ }
func (a *Attribute) IsRequired() bool { return a.required }
func (a *Attribute) IsExtension() bool { return a.extension }

func (a *Attribute) String() string {
	return fmt.Sprintf("%s (%s)", a.name, a.typ.Name())
}

// SameName reports name-only equality.
func (a *Attribute) SameName(o *Attribute) bool {
	return o != nil && a.name == o.name
}

// Equal reports name+type equality.
func (a *Attribute) Equal(o *Attribute) bool {
	return a.SameName(o) && a.typ == o.typ
}

// Strict reports name+type+kind equality, where kind covers the required
// and extension flags.
func (a *Attribute) Strict(o *Attribute) bool {
	return a.Equal(o) && a.required == o.required && a.extension == o.extension
}

// Parse converts text via the attribute type and validates the result. Any
// failure is wrapped in an *AttributeError naming this attribute.
func (a *Attribute) Parse(text string) (types.Value, error) {
	v, err := a.typ.Parse(text)
	if err != nil {
		return types.Value{}, &AttributeError{Name: a.name, Err: err}
	}
	if err := a.Validate(v); err != nil {
		return types.Value{}, err
	}
	return v, nil
}

// Validate runs type validation and the custom validator, if any.
func (a *Attribute) Validate(v types.Value) error {
	if err := a.typ.Validate(v); err != nil {
		return &AttributeError{Name: a.name, Err: err}
	}
	if a.validator != nil {
		if err := a.validator.Validate(v); err != nil {
			return &AttributeError{Name: a.name, Err: err}
		}
	}
	return nil
}

// Format validates v and renders it to its canonical string form.
func (a *Attribute) Format(v types.Value) (string, error) {
	if err := a.Validate(v); err != nil {
		return "", err
	}
	s, err := a.typ.Format(v)
	if err != nil {
		return "", &AttributeError{Name: a.name, Err: err}
	}
	return s, nil
}
