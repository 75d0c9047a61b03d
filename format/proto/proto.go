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

// Package proto implements the CloudEvents protobuf event format
// (io.cloudevents.v1.CloudEvent), encoded directly against the wire schema:
// id=1, source=2, spec_version=3, type=4, the attributes map=5 and a data
// oneof (binary=6, text=7). Attribute values are the oneof ce_boolean=1,
// ce_integer=2, ce_string=3, ce_bytes=4, ce_uri=5, ce_uri_ref=6,
// ce_timestamp=7 (google.protobuf.Timestamp).
package proto

import (
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/eventmesh-io/cloudenvelope/event"
	"github.com/eventmesh-io/cloudenvelope/format"
	"github.com/eventmesh-io/cloudenvelope/spec"
	"github.com/eventmesh-io/cloudenvelope/types"
)

const (
	// MediaType is the structured-mode content type.
	MediaType = format.Prefix + "+protobuf"
	// BatchMediaType is the batch-mode content type.
	BatchMediaType = format.BatchPrefix + "+protobuf"
)

// CloudEvent message field numbers.
const (
	fieldID          = 1
	fieldSource      = 2
	fieldSpecVersion = 3
	fieldType        = 4
	fieldAttributes  = 5
	fieldBinaryData  = 6
	fieldTextData    = 7
)

// CloudEventAttributeValue oneof field numbers.
const (
	attrBool      = 1
	attrInteger   = 2
	attrString    = 3
	attrBytes     = 4
	attrURI       = 5
	attrURIRef    = 6
	attrTimestamp = 7
)

// CloudEventBatch wraps repeated CloudEvent events = 1.
const fieldBatchEvent = 1

// Formatter is the protobuf implementation of format.Formatter. The wire
// schema names the 1.0 attributes, so only spec version 1.0 events are
// supported.
type Formatter struct{}

var _ format.Formatter = Formatter{}

func init() {
	format.Add(Formatter{}, MediaType, BatchMediaType)
}

// EncodeStructured implements format.Formatter.
func (f Formatter) EncodeStructured(e *event.Event) ([]byte, string, error) {
	body, err := f.marshal(e)
	if err != nil {
		return nil, "", err
	}
	return body, MediaType, nil
}

func (f Formatter) marshal(e *event.Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("event must not be nil")
	}
	if e.Version() != spec.V1 {
		return nil, fmt.Errorf("protobuf format requires spec version 1.0, event is %s", e.Version())
	}
	// Unset fields are omitted, matching protobuf default-value rules.
	var b []byte
	if id := e.ID(); id != "" {
		b = appendStringField(b, fieldID, id)
	}
	if u := e.Source(); u != nil {
		b = appendStringField(b, fieldSource, u.String())
	}
	b = appendStringField(b, fieldSpecVersion, e.Version().String())
	if t := e.Type(); t != "" {
		b = appendStringField(b, fieldType, t)
	}

	idName, _ := e.Version().Name(spec.ConceptID)
	sourceName, _ := e.Version().Name(spec.ConceptSource)
	typeName, _ := e.Version().Name(spec.ConceptType)
	for _, name := range e.Names() {
		if name == idName || name == sourceName || name == typeName {
			continue
		}
		v, err := e.Get(name)
		if err != nil {
			return nil, err
		}
		av, err := marshalAttributeValue(e.Attribute(name), v)
		if err != nil {
			return nil, err
		}
		var entry []byte
		entry = appendStringField(entry, 1, name)
		entry = protowire.AppendTag(entry, 2, protowire.BytesType)
		entry = protowire.AppendBytes(entry, av)
		b = protowire.AppendTag(b, fieldAttributes, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return appendData(b, e)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func marshalAttributeValue(a *spec.Attribute, v types.Value) ([]byte, error) {
	var b []byte
	switch v.Kind() {
	case types.KindBool:
		bv, _ := v.AsBool()
		b = protowire.AppendTag(b, attrBool, protowire.VarintType)
		var n uint64
		if bv {
			n = 1
		}
		b = protowire.AppendVarint(b, n)
	case types.KindInteger:
		n, _ := v.AsInteger()
		b = protowire.AppendTag(b, attrInteger, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(n)))
	case types.KindString:
		s, _ := v.AsString()
		b = appendStringField(b, attrString, s)
	case types.KindBinary:
		bs, _ := v.AsBinary()
		b = protowire.AppendTag(b, attrBytes, protowire.BytesType)
		b = protowire.AppendBytes(b, bs)
	case types.KindURI:
		u, _ := v.AsURL()
		b = appendStringField(b, attrURI, u.String())
	case types.KindURIRef:
		u, _ := v.AsURL()
		b = appendStringField(b, attrURIRef, u.String())
	case types.KindTimestamp:
		t, _ := v.AsTime()
		b = protowire.AppendTag(b, attrTimestamp, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalTimestamp(t))
	default:
		return nil, fmt.Errorf("attribute %q has no value", a.Name())
	}
	return b, nil
}

// marshalTimestamp encodes a google.protobuf.Timestamp (seconds=1, nanos=2).
// The UTC offset is not representable in protobuf timestamps, so the wire
// value is the UTC instant.
func marshalTimestamp(t time.Time) []byte {
	var b []byte
	if secs := t.Unix(); secs != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(secs))
	}
	if nanos := t.Nanosecond(); nanos != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(nanos)))
	}
	return b
}

func appendData(b []byte, e *event.Event) ([]byte, error) {
	d := e.Data()
	if d == nil {
		return b, nil
	}
	switch v := d.(type) {
	case string:
		return appendStringField(b, fieldTextData, v), nil
	case []byte:
		b = protowire.AppendTag(b, fieldBinaryData, protowire.BytesType)
		return protowire.AppendBytes(b, v), nil
	default:
		return nil, fmt.Errorf("data of type %T cannot be encoded in the protobuf format", d)
	}
}

// DecodeStructured implements format.Formatter.
func (f Formatter) DecodeStructured(body []byte, contentType string, exts ...*spec.Attribute) (*event.Event, error) {
	e, err := event.New(event.WithVersion(spec.V1), event.WithExtensions(exts...))
	if err != nil {
		return nil, err
	}
	if err := f.unmarshal(body, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (f Formatter) unmarshal(body []byte, e *event.Event) error {
	idName, _ := spec.V1.Name(spec.ConceptID)
	sourceName, _ := spec.V1.Name(spec.ConceptSource)
	typeName, _ := spec.V1.Name(spec.ConceptType)
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return format.Errorf("invalid protobuf tag")
		}
		body = body[n:]
		switch num {
		case fieldID, fieldSource, fieldSpecVersion, fieldType:
			s, n, err := consumeString(body, typ)
			if err != nil {
				return err
			}
			body = body[n:]
			switch num {
			case fieldID:
				if err := e.SetFromString(idName, s); err != nil {
					return err
				}
			case fieldSource:
				if err := e.SetFromString(sourceName, s); err != nil {
					return err
				}
			case fieldType:
				if err := e.SetFromString(typeName, s); err != nil {
					return err
				}
			case fieldSpecVersion:
				if s != spec.V1.String() {
					return format.Errorf("protobuf format carries spec version %q, only 1.0 is supported", s)
				}
			}
		case fieldAttributes:
			entry, n := protowire.ConsumeBytes(body)
			if n < 0 {
				return format.Errorf("invalid attributes entry")
			}
			body = body[n:]
			if err := unmarshalAttributeEntry(entry, e); err != nil {
				return err
			}
		case fieldBinaryData:
			v, n := protowire.ConsumeBytes(body)
			if n < 0 {
				return format.Errorf("invalid binary data field")
			}
			body = body[n:]
			e.SetData(append([]byte(nil), v...))
		case fieldTextData:
			v, n := protowire.ConsumeBytes(body)
			if n < 0 {
				return format.Errorf("invalid text data field")
			}
			body = body[n:]
			e.SetData(string(v))
		default:
			n := protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return format.Errorf("invalid protobuf field %d", num)
			}
			body = body[n:]
		}
	}
	return nil
}

func consumeString(b []byte, typ protowire.Type) (string, int, error) {
	if typ != protowire.BytesType {
		return "", 0, format.Errorf("unexpected wire type %d for string field", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return "", 0, format.Errorf("invalid string field")
	}
	return string(v), n, nil
}

func unmarshalAttributeEntry(entry []byte, e *event.Event) error {
	var name string
	var value []byte
	for len(entry) > 0 {
		num, typ, n := protowire.ConsumeTag(entry)
		if n < 0 {
			return format.Errorf("invalid attributes entry")
		}
		entry = entry[n:]
		switch num {
		case 1:
			s, n, err := consumeString(entry, typ)
			if err != nil {
				return err
			}
			entry = entry[n:]
			name = s
		case 2:
			v, n := protowire.ConsumeBytes(entry)
			if n < 0 {
				return format.Errorf("invalid attribute value")
			}
			entry = entry[n:]
			value = v
		default:
			n := protowire.ConsumeFieldValue(num, typ, entry)
			if n < 0 {
				return format.Errorf("invalid attributes entry field %d", num)
			}
			entry = entry[n:]
		}
	}
	if name == "" {
		return format.Errorf("attribute entry without a name")
	}
	return unmarshalAttributeValue(name, value, e)
}

func unmarshalAttributeValue(name string, b []byte, e *event.Event) error {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return format.Errorf("attribute %q: invalid value", name)
	}
	b = b[n:]
	switch num {
	case attrBool:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 || typ != protowire.VarintType {
			return format.Errorf("attribute %q: invalid boolean", name)
		}
		return setTyped(e, name, types.Boolean, types.NewBool(v != 0))
	case attrInteger:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 || typ != protowire.VarintType {
			return format.Errorf("attribute %q: invalid integer", name)
		}
		return setTyped(e, name, types.Integer, types.NewInteger(int32(int64(v))))
	case attrString, attrURI, attrURIRef:
		s, _, err := consumeString(b, typ)
		if err != nil {
			return format.Errorf("attribute %q: %v", name, err)
		}
		switch num {
		case attrString:
			return setTyped(e, name, types.String, types.NewString(s))
		case attrURI:
			u, err := url.Parse(s)
			if err != nil {
				return format.Errorf("attribute %q: %v", name, err)
			}
			return setTyped(e, name, types.URI, types.NewURI(u))
		default:
			u, err := url.Parse(s)
			if err != nil {
				return format.Errorf("attribute %q: %v", name, err)
			}
			return setTyped(e, name, types.URIRef, types.NewURIRef(u))
		}
	case attrBytes:
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return format.Errorf("attribute %q: invalid bytes", name)
		}
		return setTyped(e, name, types.Binary, types.NewBinary(append([]byte(nil), v...)))
	case attrTimestamp:
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return format.Errorf("attribute %q: invalid timestamp", name)
		}
		t, err := unmarshalTimestamp(v)
		if err != nil {
			return format.Errorf("attribute %q: %v", name, err)
		}
		return setTyped(e, name, types.Timestamp, types.NewTime(t))
	}
	return format.Errorf("attribute %q: unknown value field %d", name, num)
}

// setTyped assigns a decoded attribute, introducing a typed extension when
// the name is unknown to the event.
func setTyped(e *event.Event, name string, t *types.Type, v types.Value) error {
	a := e.Attribute(name)
	if a == nil {
		ext, err := spec.NewExtension(name, t)
		if err != nil {
			return err
		}
		a = ext
	}
	return e.SetAttribute(a, v)
}

func unmarshalTimestamp(b []byte) (time.Time, error) {
	var secs int64
	var nanos int64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return time.Time{}, fmt.Errorf("invalid timestamp message")
		}
		b = b[n:]
		v, n := protowire.ConsumeVarint(b)
		if n < 0 || typ != protowire.VarintType {
			return time.Time{}, fmt.Errorf("invalid timestamp field")
		}
		b = b[n:]
		switch num {
		case 1:
			secs = int64(v)
		case 2:
			nanos = int64(v)
		}
	}
	return time.Unix(secs, nanos).UTC(), nil
}

// EncodeBatch implements format.Formatter (io.cloudevents.v1.CloudEventBatch).
func (f Formatter) EncodeBatch(evs []*event.Event) ([]byte, string, error) {
	var b []byte
	for _, e := range evs {
		body, err := f.marshal(e)
		if err != nil {
			return nil, "", err
		}
		b = protowire.AppendTag(b, fieldBatchEvent, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
	}
	return b, BatchMediaType, nil
}

// DecodeBatch implements format.Formatter.
func (f Formatter) DecodeBatch(body []byte, contentType string, exts ...*spec.Attribute) ([]*event.Event, error) {
	var evs []*event.Event
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return nil, format.Errorf("invalid protobuf batch")
		}
		body = body[n:]
		if num != fieldBatchEvent {
			n := protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return nil, format.Errorf("invalid protobuf batch field %d", num)
			}
			body = body[n:]
			continue
		}
		raw, n := protowire.ConsumeBytes(body)
		if n < 0 {
			return nil, format.Errorf("invalid protobuf batch entry")
		}
		body = body[n:]
		e, err := f.DecodeStructured(raw, MediaType, exts...)
		if err != nil {
			return nil, err
		}
		evs = append(evs, e)
	}
	if evs == nil {
		evs = []*event.Event{}
	}
	return evs, nil
}

// EncodeBinaryData implements format.Formatter.
func (f Formatter) EncodeBinaryData(e *event.Event) ([]byte, error) {
	d := e.Data()
	if d == nil {
		return nil, nil
	}
	switch v := d.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("data of type %T cannot be encoded in binary mode", d)
	}
}

// DecodeBinaryData implements format.Formatter.
func (f Formatter) DecodeBinaryData(body []byte, e *event.Event) error {
	if e == nil {
		return fmt.Errorf("event must not be nil")
	}
	if len(body) == 0 {
		e.SetData(nil)
		return nil
	}
	mt := e.DataContentType()
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	if strings.HasPrefix(mt, "text/") {
		e.SetData(string(body))
		return nil
	}
	e.SetData(append([]byte(nil), body...))
	return nil
}
