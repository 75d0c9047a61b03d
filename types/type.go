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

package types

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Type is one of the closed set of CloudEvents attribute types. Instances
// are immutable singletons; use the package-level variables.
type Type struct {
	name string
	kind Kind
}

var (
	Boolean   = &Type{name: "Boolean", kind: KindBool}
	Integer   = &Type{name: "Integer", kind: KindInteger}
	String    = &Type{name: "String", kind: KindString}
	Binary    = &Type{name: "Binary", kind: KindBinary}
	URI       = &Type{name: "URI", kind: KindURI}
	URIRef    = &Type{name: "URI-Reference", kind: KindURIRef}
	Timestamp = &Type{name: "Timestamp", kind: KindTimestamp}
)

var typesByName = map[string]*Type{
	Boolean.name:   Boolean,
	Integer.name:   Integer,
	String.name:    String,
	Binary.name:    Binary,
	URI.name:       URI,
	URIRef.name:    URIRef,
	Timestamp.name: Timestamp,
}

// LookupType returns the attribute type with the given name, or nil.
func LookupType(name string) *Type { return typesByName[name] }

func (t *Type) Name() string { return t.name }
func (t *Type) Kind() Kind { return t.kind }

// Parse converts the canonical string representation into a Value. Parsing
// performs only the checks needed to construct the value; call Validate for
// the content rules.
func (t *Type) Parse(text string) (Value, error) {
	switch t.kind {
	case KindBool:
		switch text {
		case "true":
			return NewBool(true), nil
		case "false":
			return NewBool(false), nil
		}
		return Value{}, fmt.Errorf("invalid Boolean value %q", text)
	case KindInteger:
		if strings.HasPrefix(text, "+") {
			return Value{}, fmt.Errorf("invalid Integer value %q: leading '+' not permitted", text)
		}
		n, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("invalid Integer value %q", text)
		}
		return NewInteger(int32(n)), nil
	case KindString:
		return NewString(text), nil
	case KindBinary:
		b, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return Value{}, fmt.Errorf("invalid base64 value: %w", err)
		}
		return NewBinary(b), nil
	case KindURI:
		u, err := url.Parse(text)
		if err != nil {
			return Value{}, fmt.Errorf("invalid URI %q: %w", text, err)
		}
		if !u.IsAbs() {
			return Value{}, fmt.Errorf("URI %q is not absolute", text)
		}
		return NewURI(u), nil
	case KindURIRef:
		u, err := url.Parse(text)
		if err != nil {
			return Value{}, fmt.Errorf("invalid URI-Reference %q: %w", text, err)
		}
		return NewURIRef(u), nil
	case KindTimestamp:
		ts, err := ParseTimestamp(text)
		if err != nil {
			return Value{}, err
		}
		return NewTime(ts), nil
	}
	return Value{}, fmt.Errorf("unknown attribute type")
}

// Validate enforces the type's content rules. A Value that passes Validate
// is guaranteed to Format without error.
func (t *Type) Validate(v Value) error {
	if v.kind != t.kind {
		return fmt.Errorf("value of kind %s where %s is required", v.kind, t.name)
	}
	switch t.kind {
	case KindString:
		return checkString(v.s)
	case KindURI:
		if v.u == nil {
			return fmt.Errorf("nil URI")
		}
		if !v.u.IsAbs() {
			return fmt.Errorf("URI %q is not absolute", v.u)
		}
	case KindURIRef:
		if v.u == nil {
			return fmt.Errorf("nil URI-Reference")
		}
	case KindTimestamp:
		_, offset := v.t.Zone()
		if offset > maxOffsetMinutes*60 || offset < -maxOffsetMinutes*60 {
			return fmt.Errorf("timestamp UTC offset exceeds 14 hours")
		}
	}
	return nil
}

// Format renders a Value of this type to its canonical string. Validate must
// have been called first; Format only checks that the kinds agree.
func (t *Type) Format(v Value) (string, error) {
	if v.kind != t.kind {
		return "", fmt.Errorf("value of kind %s where %s is required", v.kind, t.name)
	}
	switch t.kind {
	case KindBool:
		return strconv.FormatBool(v.b), nil
	case KindInteger:
		return strconv.FormatInt(int64(v.i), 10), nil
	case KindString:
		return v.s, nil
	case KindBinary:
		return base64.StdEncoding.EncodeToString(v.bs), nil
	case KindURI, KindURIRef:
		if v.u == nil {
			return "", fmt.Errorf("nil URL")
		}
		return v.u.String(), nil
	case KindTimestamp:
		return FormatTimestamp(v.t), nil
	}
	return "", fmt.Errorf("unknown attribute type")
}

// ValueOf converts a native Go value into a Value of this type. A Value of
// the matching kind passes through unchanged.
func (t *Type) ValueOf(v interface{}) (Value, error) {
	if tv, ok := v.(Value); ok {
		if tv.kind != t.kind {
			return Value{}, fmt.Errorf("value of kind %s where %s is required", tv.kind, t.name)
		}
		return tv, nil
	}
	switch t.kind {
	case KindBool:
		if b, ok := v.(bool); ok {
			return NewBool(b), nil
		}
	case KindInteger:
		switch n := v.(type) {
		case int32:
			return NewInteger(n), nil
		case int:
			if n < -1<<31 || n > 1<<31-1 {
				return Value{}, fmt.Errorf("integer %d out of 32-bit range", n)
			}
			return NewInteger(int32(n)), nil
		case int64:
			if n < -1<<31 || n > 1<<31-1 {
				return Value{}, fmt.Errorf("integer %d out of 32-bit range", n)
			}
			return NewInteger(int32(n)), nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return NewString(s), nil
		}
	case KindBinary:
		if b, ok := v.([]byte); ok {
			return NewBinary(b), nil
		}
	case KindURI:
		switch u := v.(type) {
		case *url.URL:
			return NewURI(u), nil
		case url.URL:
			return NewURI(&u), nil
		}
	case KindURIRef:
		switch u := v.(type) {
		case *url.URL:
			return NewURIRef(u), nil
		case url.URL:
			return NewURIRef(&u), nil
		}
	case KindTimestamp:
		if ts, ok := v.(time.Time); ok {
			return NewTime(ts), nil
		}
	}
	return Value{}, fmt.Errorf("cannot use %T as %s", v, t.name)
}
