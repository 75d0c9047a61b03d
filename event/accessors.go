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

package event

import (
	"fmt"
	"net/url"
	"time"

	"github.com/eventmesh-io/cloudenvelope/spec"
	"github.com/eventmesh-io/cloudenvelope/types"
)

// Typed accessors resolve the version-specific attribute name for a concept
// and read or write through the attribute bag. Setting a zero value (empty
// string, nil URL, zero time) removes the attribute rather than storing a
// default.

func (e *Event) concept(c spec.Concept) types.Value {
	name, ok := e.version.Name(c)
	if !ok {
		return types.Value{}
	}
	return e.values[name]
}

func (e *Event) setConcept(c spec.Concept, v interface{}) error {
	name, ok := e.version.Name(c)
	if !ok {
		return fmt.Errorf("spec version %s has no such attribute", e.version)
	}
	a := e.version.AttributeFor(c)
	if v == nil {
		e.remove(name)
		return nil
	}
	val, err := a.Type().ValueOf(v)
	if err != nil {
		return &spec.AttributeError{Name: name, Err: err}
	}
	return e.commit(a, val)
}

// ID returns the event id, or "" when unset.
func (e *Event) ID() string {
	s, _ := e.concept(spec.ConceptID).AsString()
	return s
}

// SetID assigns the event id; "" removes it.
func (e *Event) SetID(id string) error {
	if id == "" {
		return e.setConcept(spec.ConceptID, nil)
	}
	return e.setConcept(spec.ConceptID, id)
}

// Type returns the event type, or "" when unset.
func (e *Event) Type() string {
	s, _ := e.concept(spec.ConceptType).AsString()
	return s
}

// SetType assigns the event type; "" removes it.
func (e *Event) SetType(t string) error {
	if t == "" {
		return e.setConcept(spec.ConceptType, nil)
	}
	return e.setConcept(spec.ConceptType, t)
}

// Source returns the source URI-reference, or nil when unset.
func (e *Event) Source() *url.URL {
	u, _ := e.concept(spec.ConceptSource).AsURL()
	return u
}

// SetSource assigns the source; nil removes it.
func (e *Event) SetSource(u *url.URL) error {
	if u == nil {
		return e.setConcept(spec.ConceptSource, nil)
	}
	return e.setConcept(spec.ConceptSource, u)
}

// Subject returns the subject, or "" when unset or unsupported by the
// current spec version.
func (e *Event) Subject() string {
	s, _ := e.concept(spec.ConceptSubject).AsString()
	return s
}

// SetSubject assigns the subject; "" removes it.
func (e *Event) SetSubject(s string) error {
	if s == "" {
		return e.setConcept(spec.ConceptSubject, nil)
	}
	return e.setConcept(spec.ConceptSubject, s)
}

// Time returns the event timestamp, or the zero time when unset.
func (e *Event) Time() time.Time {
	t, _ := e.concept(spec.ConceptTime).AsTime()
	return t
}

// SetTime assigns the timestamp; the zero time removes it.
func (e *Event) SetTime(t time.Time) error {
	if t.IsZero() {
		return e.setConcept(spec.ConceptTime, nil)
	}
	return e.setConcept(spec.ConceptTime, t)
}

// DataSchema returns the data schema URI, or nil when unset.
func (e *Event) DataSchema() *url.URL {
	u, _ := e.concept(spec.ConceptDataSchema).AsURL()
	return u
}

// SetDataSchema assigns the data schema; nil removes it.
func (e *Event) SetDataSchema(u *url.URL) error {
	if u == nil {
		return e.setConcept(spec.ConceptDataSchema, nil)
	}
	return e.setConcept(spec.ConceptDataSchema, u)
}

// DataContentType returns the declared content type of the data payload, or
// "" when unset.
func (e *Event) DataContentType() string {
	s, _ := e.concept(spec.ConceptDataContentType).AsString()
	return s
}

// SetDataContentType assigns the data content type; "" removes it.
func (e *Event) SetDataContentType(ct string) error {
	if ct == "" {
		return e.setConcept(spec.ConceptDataContentType, nil)
	}
	return e.setConcept(spec.ConceptDataContentType, ct)
}
