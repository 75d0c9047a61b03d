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
	"fmt"
	"net/url"
	"time"
)

// Kind enumerates the CloudEvents attribute value kinds.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInteger
	KindString
	KindBinary
	KindURI
	KindURIRef
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "Boolean"
	case KindInteger:
		return "Integer"
	case KindString:
		return "String"
	case KindBinary:
		return "Binary"
	case KindURI:
		return "URI"
	case KindURIRef:
		return "URI-Reference"
	case KindTimestamp:
		return "Timestamp"
	}
	return "Invalid"
}

// Value is a tagged union holding one CloudEvents attribute value. The zero
// Value has KindInvalid and represents "no value".
type Value struct {
	kind Kind
	b    bool
	i    int32
	s    string
	bs   []byte
	u    *url.URL
	t    time.Time
}

func NewBool(v bool) Value { return Value{kind: KindBool, b: v} }
func NewInteger(v int32) Value { return Value{kind: KindInteger, i: v} }
func NewString(v string) Value { return Value{kind: KindString, s: v} }
func NewBinary(v []byte) Value { return Value{kind: KindBinary, bs: v} }
func NewURI(u *url.URL) Value { return Value{kind: KindURI, u: u} }
func NewURIRef(u *url.URL) Value { return Value{kind: KindURIRef, u: u} }
func NewTime(t time.Time) Value { return Value{kind: KindTimestamp, t: t} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsZero() bool { return v.kind == KindInvalid }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsInteger() (int32, bool) { return v.i, v.kind == KindInteger }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsBinary() ([]byte, bool) { return v.bs, v.kind == KindBinary }
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTimestamp }

// AsURL returns the URL for both URI and URI-Reference values.
func (v Value) AsURL() (*url.URL, bool) {
	return v.u, v.kind == KindURI || v.kind == KindURIRef
}

// Interface returns the native Go representation of the value.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInteger:
		return v.i
	case KindString:
		return v.s
	case KindBinary:
		return v.bs
	case KindURI, KindURIRef:
		return v.u
	case KindTimestamp:
		return v.t
	}
	return nil
}

// String renders the value for diagnostics. It is not the wire encoding; use
// Type.Format for that.
func (v Value) String() string {
	switch v.kind {
	case KindBinary:
		return fmt.Sprintf("%d bytes", len(v.bs))
	case KindTimestamp:
		return FormatTimestamp(v.t)
	case KindURI, KindURIRef:
		if v.u == nil {
			return ""
		}
		return v.u.String()
	}
	return fmt.Sprintf("%v", v.Interface())
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInteger:
		return v.i == o.i
	case KindString:
		return v.s == o.s
	case KindBinary:
		return string(v.bs) == string(o.bs)
	case KindURI, KindURIRef:
		if v.u == nil || o.u == nil {
			return v.u == o.u
		}
		return v.u.String() == o.u.String()
	case KindTimestamp:
		return v.t.Equal(o.t)
	}
	return true
}
