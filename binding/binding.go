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

// Package binding holds the header/property mapping conventions shared by
// the transport bindings: binary mode carries each context attribute as a
// prefixed header, the data content type in the transport's native
// content-type field, and the payload as the message body.
package binding

import (
	"fmt"
	"strings"

	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/spec"
)

// HeaderPrefix is prepended to attribute names in binary-mode headers.
const HeaderPrefix = "ce-"

// Mode selects the wire encoding of an outbound message.
type Mode int

const (
	// ModeBinary carries only the data as the body; attributes travel as
	// transport metadata.
	ModeBinary Mode = iota
	// ModeStructured carries the whole event in the body.
	ModeStructured
)

// Headers renders every populated attribute except datacontenttype (which
// belongs in the transport's content-type field) as prefixed header values,
// including the spec-version marker. It returns the headers and the data
// content type.
func Headers(e *event.Event) (map[string]string, string, error) {
	if e == nil {
		return nil, "", fmt.Errorf("event must not be nil")
	}
	ctName, _ := e.Version().Name(spec.ConceptDataContentType)
	headers := map[string]string{
		HeaderPrefix + e.Version().MarkerName(): e.Version().String(),
	}
	for _, name := range e.Names() {
		if name == ctName {
			continue
		}
		v, err := e.Get(name)
		if err != nil {
			return nil, "", err
		}
		s, err := e.Attribute(name).Format(v)
		if err != nil {
			return nil, "", err
		}
		headers[HeaderPrefix+name] = EncodeHeaderValue(s)
	}
	return headers, e.DataContentType(), nil
}

// FromHeaders assembles a binary-mode event from transport headers and a
// body. Header names must already be lower-cased by the caller; values are
// percent-decoded. The formatter decodes the body per the content type.
func FromHeaders(headers map[string]string, body []byte, contentType string, f format.Formatter, exts ...*spec.Attribute) (*event.Event, error) {
	version, err := versionFromHeaders(headers)
	if err != nil {
		return nil, err
	}
	e, err := event.New(event.WithVersion(version), event.WithExtensions(exts...))
	if err != nil {
		return nil, err
	}
	marker := strings.ToLower(HeaderPrefix + version.MarkerName())
	for name, value := range headers {
		if !strings.HasPrefix(name, HeaderPrefix) || name == marker {
			continue
		}
		attr := strings.TrimPrefix(name, HeaderPrefix)
		// Header names arrive lower-cased; map them back onto the
		// version's canonical casing (0.1 used names like eventID).
		if e.Attribute(attr) == nil {
			if canonical := canonicalName(version, attr); canonical != "" {
				attr = canonical
			}
		}
		decoded, err := DecodeHeaderValue(value)
		if err != nil {
			return nil, format.Errorf("header %s: %v", name, err)
		}
		if err := e.SetFromString(attr, decoded); err != nil {
			return nil, err
		}
	}
	if contentType != "" {
		if err := e.SetDataContentType(contentType); err != nil {
			return nil, err
		}
	}
	if err := f.DecodeBinaryData(body, e); err != nil {
		return nil, err
	}
	return e, nil
}

func canonicalName(v *spec.Version, lower string) string {
	for _, c := range spec.Concepts() {
		if name, ok := v.Name(c); ok && strings.EqualFold(name, lower) {
			return name
		}
	}
	return ""
}

func versionFromHeaders(headers map[string]string) (*spec.Version, error) {
	for _, v := range spec.Versions() {
		s, ok := headers[strings.ToLower(HeaderPrefix+v.MarkerName())]
		if !ok {
			continue
		}
		version, err := spec.Lookup(s)
		if err != nil {
			return nil, format.Errorf("%v", err)
		}
		return version, nil
	}
	return nil, format.Errorf("no spec version header present")
}

// IsCloudEvent reports whether an inbound message is recognizable as a
// CloudEvent: either a structured-mode content type or a spec-version
// header.
func IsCloudEvent(contentType string, hasSpecVersionHeader bool) bool {
	return hasSpecVersionHeader || format.IsFormat(contentType)
}

// HasSpecVersionHeader scans lower-cased header names for a spec-version
// marker of any supported version.
func HasSpecVersionHeader(headers map[string]string) bool {
	for _, v := range spec.Versions() {
		if _, ok := headers[strings.ToLower(HeaderPrefix+v.MarkerName())]; ok {
			return true
		}
	}
	return false
}

// EncodeHeaderValue percent-encodes the bytes of s that cannot travel in a
// transport header: non-ASCII (as UTF-8 octets), control characters, space,
// double quote and percent itself. ASCII printable text passes unchanged.
func EncodeHeaderValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c > 0x20 && c < 0x7f && c != '%' && c != '"' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// DecodeHeaderValue reverses EncodeHeaderValue. Percent signs not followed
// by two hex digits are an error.
func DecodeHeaderValue(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated percent escape in %q", s)
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("invalid percent escape in %q", s)
		}
		b.WriteByte(hi<<4 | lo)
		i += 2
	}
	return b.String(), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
